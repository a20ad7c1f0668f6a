package service

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/raffle-labs/raffle/lib/httpjson"
	"github.com/raffle-labs/raffle/raffle/api"
	"github.com/raffle-labs/raffle/raffle/events"
	"github.com/raffle-labs/raffle/raffle/store"
	"github.com/raffle-labs/raffle/types"
	"github.com/raffle-labs/raffle/util"
	"github.com/raffle-labs/raffle/version"
	vrftypes "github.com/raffle-labs/raffle/vrf/types"
)

const (
	defaultListLimit = 20
	maxListLimit     = 1000
)

// rpcServer serves the raffle over JSON HTTP
type rpcServer struct {
	app    *RaffleApp
	logger *zap.Logger
}

func newRPCServer(app *RaffleApp) *rpcServer {
	return &rpcServer{
		app:    app,
		logger: app.Logger(),
	}
}

// Handler returns the routes of rfd. Everything but the health check is
// authenticated with hmacKey. The coordinator callback only exists for a
// remote coordinator and is refused outright without a key.
func (r *rpcServer) Handler(hmacKey string) http.Handler {
	engine := httpjson.NewEngine(r.logger)
	engine.GET("/health", r.health)

	v1 := engine.Group("/v1", httpjson.HMACMiddleware(hmacKey, r.logger))
	v1.GET("/status", r.status)
	v1.GET("/params", r.params)
	v1.POST("/enter", r.enter)
	v1.GET("/participants", r.participants)
	v1.GET("/participants/:index", r.participant)
	v1.GET("/upkeep", r.checkUpkeep)
	v1.POST("/upkeep/perform", r.performUpkeep)
	v1.GET("/draws", r.draws)
	v1.GET("/events", r.events)
	v1.GET("/rounds/:round/events", r.archivedRoundEvents)
	v1.GET("/balances/:account", r.balance)

	if r.app.LocalCoordinator() == nil {
		callback := engine.Group("/v1/vrf", httpjson.RequireHMACMiddleware(hmacKey, r.logger))
		callback.POST("/fulfill", r.rawFulfillRandomWords)
	}

	if r.app.Config().EnableManualFulfill {
		v1.POST("/requests/:id/fulfill", r.fulfill)
	}

	if r.app.Config().EnableFaucet {
		v1.POST("/faucet/fund", r.fund)
		v1.POST("/faucet/reject", r.reject)
	}

	return engine
}

func (r *rpcServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "build": version.Get()})
}

func (r *rpcServer) status(c *gin.Context) {
	raffle := r.app.Raffle()
	s, err := raffle.Status()
	if err != nil {
		httpjson.AbortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, newStatusResponse(raffle, s))
}

func newStatusResponse(raffle *Raffle, s *RaffleStatus) *api.StatusResponse {
	resp := &api.StatusResponse{
		Address:         raffle.Address().Hex(),
		Coordinator:     raffle.CoordinatorAddress().Hex(),
		State:           s.State.String(),
		RoundNumber:     s.RoundNumber,
		NumParticipants: s.NumParticipants,
		LastTimestamp:   s.LastTimestamp,
		RecentWinner:    s.RecentWinner.Hex(),
		PoolBalance:     types.FormatEther(s.PoolBalance),
		EntranceFee:     types.FormatEther(s.EntranceFee),
		Interval:        s.Interval.String(),
	}
	if s.OutstandingRequest != nil {
		resp.OutstandingRequest = s.OutstandingRequest.Hex()
	}

	return resp
}

func (r *rpcServer) params(c *gin.Context) {
	params := r.app.Raffle().Params()
	c.JSON(http.StatusOK, api.NewParamsResponse(&params))
}

func (r *rpcServer) enter(c *gin.Context) {
	var msg api.EnterMsg
	if err := c.ShouldBindJSON(&msg); err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}
	player, err := util.ParseAddress(msg.Player)
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}
	amount, err := types.ParseEther(msg.Amount)
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}

	if err := r.app.Raffle().Enter(c.Request.Context(), player, amount); err != nil {
		// the player's account could not pay
		if errors.Is(err, store.ErrInsufficientFunds) {
			httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

			return
		}
		httpjson.AbortWithError(c, err)

		return
	}

	r.status(c)
}

func (r *rpcServer) participants(c *gin.Context) {
	participants, err := r.app.Raffle().Participants()
	if err != nil {
		httpjson.AbortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, api.NewParticipantsResponse(participants))
}

func (r *rpcServer) participant(c *gin.Context) {
	index, err := strconv.ParseUint(c.Param("index"), 10, 64)
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}

	p, err := r.app.Raffle().Participant(index)
	if err != nil {
		httpjson.AbortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, &api.ParticipantResponse{Index: index, Address: p.Hex()})
}

func (r *rpcServer) checkUpkeep(c *gin.Context) {
	_, s, err := r.app.Raffle().CheckUpkeep(c.Request.Context())
	if err != nil {
		httpjson.AbortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, &api.UpkeepResponse{
		UpkeepNeeded:    s.UpkeepNeeded,
		State:           s.State.String(),
		TimePassed:      s.TimePassed,
		ElapsedSeconds:  int64(s.Elapsed / time.Second),
		NumParticipants: s.NumParticipants,
		Balance:         types.FormatEther(s.Balance),
	})
}

func (r *rpcServer) performUpkeep(c *gin.Context) {
	requestID, err := r.app.Raffle().PerformUpkeep(c.Request.Context())
	if err != nil {
		httpjson.AbortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, &types.RequestIDResponse{RequestID: requestID.Hex()})
}

// rawFulfillRandomWords is the callback of remote coordinators. It answers
// OK whenever the words were used, so that the coordinator does not record
// a completed draw as failed: after a failed payout, and when a retried
// delivery finds its draw already done.
func (r *rpcServer) rawFulfillRandomWords(c *gin.Context) {
	var msg types.FulfillRandomWordsMsg
	if err := c.ShouldBindJSON(&msg); err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}
	sender, requestID, words, err := msg.Parse()
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}

	raffle := r.app.Raffle()
	err = raffle.RawFulfillRandomWords(c.Request.Context(), sender, requestID, words)
	switch {
	case err == nil:
	case errors.Is(err, types.ErrRandomWordsConsumed):
		r.logger.Warn("draw completed with an error",
			zap.String("request_id", requestID.Hex()),
			zap.Error(err),
		)
	case errors.Is(err, ErrRoundNotCalculating):
		drawn, drawErr := raffle.HasDrawn(requestID)
		if drawErr != nil || !drawn {
			httpjson.AbortWithError(c, err)

			return
		}
		r.logger.Info("ignoring redelivered random words", zap.String("request_id", requestID.Hex()))
	default:
		httpjson.AbortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

// fulfill has the coordinator fulfill a pending request right away
func (r *rpcServer) fulfill(c *gin.Context) {
	requestID, err := types.ParseHash(c.Param("id"))
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}
	var msg vrftypes.FulfillMsg
	if err := c.ShouldBindJSON(&msg); err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}
	words, err := types.ParseRandomWords(msg.RandomWords)
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}

	f, err := r.app.Fulfill(c.Request.Context(), requestID, words)
	if err != nil {
		httpjson.AbortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, f)
}

func (r *rpcServer) draws(c *gin.Context) {
	limit, err := queryLimit(c)
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}

	draws, err := r.app.Raffle().Draws(limit)
	if err != nil {
		httpjson.AbortWithError(c, err)

		return
	}

	resp := make([]*api.DrawResponse, 0, len(draws))
	for _, d := range draws {
		resp = append(resp, api.NewDrawResponse(d))
	}
	c.JSON(http.StatusOK, resp)
}

func (r *rpcServer) events(c *gin.Context) {
	limit, err := queryLimit(c)
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}
	var from uint64
	if s := c.Query("from"); s != "" {
		if from, err = strconv.ParseUint(s, 10, 64); err != nil {
			httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

			return
		}
	}

	stored, err := r.app.EventStore().ListEvents(from, limit)
	if err != nil {
		httpjson.AbortWithError(c, err)

		return
	}

	resp := make([]*api.EventResponse, 0, len(stored))
	for _, se := range stored {
		ev, err := events.FromStoredEvent(se)
		if err != nil {
			httpjson.AbortWithError(c, err)

			return
		}
		resp = append(resp, api.NewEventResponse(se.Seq, ev))
	}
	c.JSON(http.StatusOK, resp)
}

func (r *rpcServer) archivedRoundEvents(c *gin.Context) {
	archive := r.app.Archive()
	if archive == nil {
		httpjson.AbortWithStatus(c, http.StatusNotFound, errors.New("the event archive is not enabled"))

		return
	}
	round, err := strconv.ParseUint(c.Param("round"), 10, 64)
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}

	docs, err := archive.RoundEvents(c.Request.Context(), round)
	if err != nil {
		httpjson.AbortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, docs)
}

func (r *rpcServer) balance(c *gin.Context) {
	account, err := util.ParseAddress(c.Param("account"))
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}

	balance, err := r.app.Ledger().Balance(account)
	if err != nil {
		httpjson.AbortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, &api.BalanceResponse{Account: account.Hex(), Balance: types.FormatEther(balance)})
}

func (r *rpcServer) fund(c *gin.Context) {
	var msg api.FundMsg
	if err := c.ShouldBindJSON(&msg); err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}
	account, err := util.ParseAddress(msg.Account)
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}
	amount, err := types.ParseEther(msg.Amount)
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}

	balance, err := r.app.Mint(account, amount)
	if err != nil {
		httpjson.AbortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, &api.BalanceResponse{Account: account.Hex(), Balance: types.FormatEther(balance)})
}

func (r *rpcServer) reject(c *gin.Context) {
	var msg api.RejectMsg
	if err := c.ShouldBindJSON(&msg); err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}
	account, err := util.ParseAddress(msg.Account)
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}

	if err := r.app.Ledger().SetRejectsTransfers(account, msg.Rejects); err != nil {
		httpjson.AbortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, &msg)
}

func queryLimit(c *gin.Context) (int, error) {
	s := c.Query("limit")
	if s == "" {
		return defaultListLimit, nil
	}

	limit, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if limit <= 0 || limit > maxListLimit {
		return 0, errors.New("limit must be between 1 and 1000")
	}

	return limit, nil
}
