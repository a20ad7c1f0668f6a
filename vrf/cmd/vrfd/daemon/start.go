package daemon

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/raffle-labs/raffle/log"
	vrfcfg "github.com/raffle-labs/raffle/vrf/config"
	"github.com/raffle-labs/raffle/vrf/service"
)

func NewStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the randomness coordinator daemon.",
		Long: "Start the coordinator. It serves subscription management and randomness requests over RPC " +
			"and delivers random words to the callback URL of each request.",
		Example: `vrfd start --home /home/user/.vrfd`,
		Args:    cobra.NoArgs,
		RunE:    startFn,
	}

	cmd.Flags().String(rpcListenerFlag, "", "The address that the RPC server listens to")

	return cmd
}

func startFn(cmd *cobra.Command, _ []string) error {
	homePath, err := getHomePath(cmd)
	if err != nil {
		return err
	}
	cfg, err := vrfcfg.LoadConfig(homePath)
	if err != nil {
		return fmt.Errorf("failed to load config at %s: %w", homePath, err)
	}

	rpcListener, err := cmd.Flags().GetString(rpcListenerFlag)
	if err != nil {
		return fmt.Errorf("failed to read flag %s: %w", rpcListenerFlag, err)
	}
	if rpcListener != "" {
		if _, err := net.ResolveTCPAddr("tcp", rpcListener); err != nil {
			return fmt.Errorf("invalid RPC listener address %s, %w", rpcListener, err)
		}
		cfg.RPCListener = rpcListener
	}

	logger, err := log.NewRootLoggerWithFile(vrfcfg.LogFile(homePath), cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to load the logger: %w", err)
	}

	dbBackend, err := cfg.DatabaseConfig.GetDBBackend()
	if err != nil {
		return fmt.Errorf("failed to create db backend: %w", err)
	}

	vrfServer, err := service.NewVrfServer(cfg, logger, dbBackend)
	if err != nil {
		return fmt.Errorf("failed to create vrf server: %w", err)
	}

	return vrfServer.RunUntilShutdown(cmd.Context())
}
