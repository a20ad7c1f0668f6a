package service

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/raffle-labs/raffle/lib/httpjson"
	"github.com/raffle-labs/raffle/types"
	"github.com/raffle-labs/raffle/util"
	"github.com/raffle-labs/raffle/version"
	"github.com/raffle-labs/raffle/vrf"
	vrftypes "github.com/raffle-labs/raffle/vrf/types"
)

// rpcServer serves the coordinator over JSON HTTP
type rpcServer struct {
	lc                  *vrf.LocalCoordinator
	enableManualFulfill bool
	logger              *zap.Logger
}

func newRPCServer(lc *vrf.LocalCoordinator, enableManualFulfill bool, logger *zap.Logger) *rpcServer {
	return &rpcServer{
		lc:                  lc,
		enableManualFulfill: enableManualFulfill,
		logger:              logger,
	}
}

// Handler returns the routes of the coordinator. Everything but the health
// check is authenticated with hmacKey.
func (r *rpcServer) Handler(hmacKey string) http.Handler {
	engine := httpjson.NewEngine(r.logger)
	engine.GET("/health", r.health)

	v1 := engine.Group("/v1", httpjson.HMACMiddleware(hmacKey, r.logger))
	v1.GET("/coordinator", r.coordinatorInfo)
	v1.POST("/requests", r.requestRandomWords)
	v1.GET("/requests", r.pendingRequests)
	v1.GET("/fulfillments/:id", r.fulfillment)
	v1.POST("/subscriptions", r.createSubscription)
	v1.GET("/subscriptions", r.listSubscriptions)
	v1.GET("/subscriptions/:subid", r.getSubscription)
	v1.POST("/subscriptions/:subid/fund", r.fundSubscription)
	v1.POST("/subscriptions/:subid/consumers", r.addConsumer)
	v1.DELETE("/subscriptions/:subid/consumers/:consumer", r.removeConsumer)

	if r.enableManualFulfill {
		v1.POST("/requests/:id/fulfill", r.fulfill)
	}

	return engine
}

func (r *rpcServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "build": version.Get()})
}

type coordinatorInfoResponse struct {
	Address                 string `json:"address"`
	BaseFee                 string `json:"base_fee"`
	GasPriceLink            string `json:"gas_price_link"`
	MaxCallbackGasLimit     uint32 `json:"max_callback_gas_limit"`
	MinRequestConfirmations uint16 `json:"min_request_confirmations"`
}

func (r *rpcServer) coordinatorInfo(c *gin.Context) {
	params := r.lc.Params()
	c.JSON(http.StatusOK, &coordinatorInfoResponse{
		Address:                 params.Address.Hex(),
		BaseFee:                 types.FormatEther(params.BaseFee),
		GasPriceLink:            params.GasPriceLink.String(),
		MaxCallbackGasLimit:     params.MaxCallbackGasLimit,
		MinRequestConfirmations: params.MinRequestConfirmations,
	})
}

func (r *rpcServer) requestRandomWords(c *gin.Context) {
	var msg types.RandomWordsRequestMsg
	if err := c.ShouldBindJSON(&msg); err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}
	req, err := msg.ToRequest()
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}

	requestID, err := r.lc.RequestRandomWords(c.Request.Context(), req)
	if err != nil {
		httpjson.AbortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, &types.RequestIDResponse{RequestID: requestID.Hex()})
}

func (r *rpcServer) pendingRequests(c *gin.Context) {
	pending, err := r.lc.PendingRequests()
	if err != nil {
		httpjson.AbortWithError(c, err)

		return
	}

	resp := make([]*vrftypes.PendingRequestResponse, 0, len(pending))
	for _, req := range pending {
		resp = append(resp, vrftypes.NewPendingRequestResponse(req))
	}

	c.JSON(http.StatusOK, resp)
}

func (r *rpcServer) fulfill(c *gin.Context) {
	requestID, err := types.ParseHash(c.Param("id"))
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}

	var msg vrftypes.FulfillMsg
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&msg); err != nil {
			httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

			return
		}
	}
	words, err := types.ParseRandomWords(msg.RandomWords)
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}

	f, err := r.lc.FulfillRandomWordsWithOverride(c.Request.Context(), requestID, words)
	if err != nil {
		httpjson.AbortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, vrftypes.NewFulfillmentResponse(f))
}

func (r *rpcServer) fulfillment(c *gin.Context) {
	requestID, err := types.ParseHash(c.Param("id"))
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}

	f, err := r.lc.GetFulfillment(requestID)
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusNotFound, err)

		return
	}

	c.JSON(http.StatusOK, vrftypes.NewFulfillmentResponse(f))
}

func (r *rpcServer) createSubscription(c *gin.Context) {
	var msg vrftypes.CreateSubscriptionMsg
	if err := c.ShouldBindJSON(&msg); err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}
	owner, err := util.ParseAddress(msg.Owner)
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}

	subID, err := r.lc.CreateSubscription(owner)
	if err != nil {
		httpjson.AbortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, &vrftypes.CreateSubscriptionResponse{SubscriptionID: subID})
}

// listSubscriptions filters by the consumer query parameter when set
func (r *rpcServer) listSubscriptions(c *gin.Context) {
	if consumerStr := c.Query("consumer"); consumerStr != "" {
		consumer, err := util.ParseAddress(consumerStr)
		if err != nil {
			httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

			return
		}

		sub, err := r.lc.FindSubscriptionByConsumer(consumer)
		if err != nil {
			httpjson.AbortWithError(c, err)

			return
		}
		c.JSON(http.StatusOK, []*vrftypes.SubscriptionResponse{vrftypes.NewSubscriptionResponse(sub)})

		return
	}

	subs, err := r.lc.ListSubscriptions()
	if err != nil {
		httpjson.AbortWithError(c, err)

		return
	}

	resp := make([]*vrftypes.SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		resp = append(resp, vrftypes.NewSubscriptionResponse(sub))
	}

	c.JSON(http.StatusOK, resp)
}

func (r *rpcServer) getSubscription(c *gin.Context) {
	subID, ok := parseSubID(c)
	if !ok {
		return
	}

	sub, err := r.lc.GetSubscription(subID)
	if err != nil {
		httpjson.AbortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, vrftypes.NewSubscriptionResponse(sub))
}

func (r *rpcServer) fundSubscription(c *gin.Context) {
	subID, ok := parseSubID(c)
	if !ok {
		return
	}

	var msg vrftypes.FundSubscriptionMsg
	if err := c.ShouldBindJSON(&msg); err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}
	amount, err := types.ParseEther(msg.Amount)
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}

	sub, err := r.lc.FundSubscription(subID, amount)
	if err != nil {
		httpjson.AbortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, vrftypes.NewSubscriptionResponse(sub))
}

func (r *rpcServer) addConsumer(c *gin.Context) {
	subID, ok := parseSubID(c)
	if !ok {
		return
	}

	var msg vrftypes.AddConsumerMsg
	if err := c.ShouldBindJSON(&msg); err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}
	consumer, err := util.ParseAddress(msg.Consumer)
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}

	if err := r.lc.AddConsumer(subID, consumer); err != nil {
		httpjson.AbortWithError(c, err)

		return
	}

	r.respondSubscription(c, subID)
}

func (r *rpcServer) removeConsumer(c *gin.Context) {
	subID, ok := parseSubID(c)
	if !ok {
		return
	}
	consumer, err := util.ParseAddress(c.Param("consumer"))
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return
	}

	if err := r.lc.RemoveConsumer(subID, consumer); err != nil {
		httpjson.AbortWithError(c, err)

		return
	}

	r.respondSubscription(c, subID)
}

func (r *rpcServer) respondSubscription(c *gin.Context, subID uint64) {
	sub, err := r.lc.GetSubscription(subID)
	if err != nil {
		httpjson.AbortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, vrftypes.NewSubscriptionResponse(sub))
}

func parseSubID(c *gin.Context) (uint64, bool) {
	subID, err := strconv.ParseUint(c.Param("subid"), 10, 64)
	if err != nil {
		httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

		return 0, false
	}

	return subID, true
}

