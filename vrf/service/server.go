package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/lightningnetwork/lnd/kvdb"
	"go.uber.org/zap"

	"github.com/raffle-labs/raffle/metrics"
	"github.com/raffle-labs/raffle/types"
	"github.com/raffle-labs/raffle/vrf"
	"github.com/raffle-labs/raffle/vrf/client"
	"github.com/raffle-labs/raffle/vrf/config"
)

const shutdownTimeout = 5 * time.Second

// Server is the main daemon construct for the randomness coordinator. It
// handles spinning up the RPC server, the database, the fulfillment loop and
// any other components the coordinator needs to function.
type Server struct {
	started int32

	cfg    *config.Config
	logger *zap.Logger

	lc        *vrf.LocalCoordinator
	rpcServer *rpcServer
	db        kvdb.Backend
}

// NewVrfServer creates a new server with the given config. Consumers are
// called back at the url they sent with their requests.
func NewVrfServer(cfg *config.Config, l *zap.Logger, db kvdb.Backend) (*Server, error) {
	params, err := cfg.Coordinator.Params()
	if err != nil {
		return nil, err
	}

	resolver := func(callbackURL string) (types.RandomnessConsumer, error) {
		return client.NewCallbackConsumer(callbackURL, cfg.HMACKey, l), nil
	}

	lc, err := vrf.NewLocalCoordinator(params, db, metrics.NewVrfMetrics(), l, vrf.WithCallbackResolver(resolver))
	if err != nil {
		return nil, fmt.Errorf("failed to create the coordinator: %w", err)
	}

	return &Server{
		cfg:       cfg,
		logger:    l,
		lc:        lc,
		rpcServer: newRPCServer(lc, cfg.EnableManualFulfill, l),
		db:        db,
	}, nil
}

func (s *Server) Coordinator() *vrf.LocalCoordinator {
	return s.lc
}

// RunUntilShutdown runs the main coordinator server loop until a signal is
// received to shut down the process.
func (s *Server) RunUntilShutdown(ctx context.Context) error {
	if atomic.AddInt32(&s.started, 1) != 1 {
		return nil
	}

	// Start the metrics server.
	promAddr, err := s.cfg.Metrics.Address()
	if err != nil {
		return fmt.Errorf("failed to get prometheus address: %w", err)
	}
	metricsServer := metrics.Start(promAddr, s.logger)

	defer func() {
		s.logger.Info("Shutdown complete")
	}()

	defer func() {
		s.logger.Info("Closing database...")
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database", zap.Error(err))
		} else {
			s.logger.Info("Database closed")
		}
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		metricsServer.Stop(stopCtx)
		s.logger.Info("Metrics server stopped")
	}()

	if err := s.lc.Start(); err != nil {
		return fmt.Errorf("failed to start the coordinator: %w", err)
	}
	defer func() {
		if err := s.lc.Stop(); err != nil {
			s.logger.Error("Failed to stop the coordinator", zap.Error(err))
		}
	}()

	lis, err := net.Listen("tcp", s.cfg.RPCListener)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.RPCListener, err)
	}

	httpServer := &http.Server{
		Handler:           s.rpcServer.Handler(s.cfg.HMACKey),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		s.logger.Info("RPC server listening", zap.String("address", lis.Addr().String()))
		if err := httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("RPC server stopped unexpectedly", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	if s.cfg.HMACKey == "" {
		s.logger.Warn("HMAC key not configured, RPC requests are not authenticated and consumers will refuse the callbacks")
	}
	if s.cfg.EnableManualFulfill {
		s.logger.Warn("manual fulfillment is enabled, RPC clients holding the HMAC key choose the random words")
	}
	s.logger.Info("VRF Coordinator Daemon is fully active!")

	// Wait for shutdown signal from either a graceful server stop or from
	// the interrupt handler.
	<-ctx.Done()

	return nil
}
