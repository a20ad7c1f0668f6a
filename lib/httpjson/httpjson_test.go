package httpjson_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/raffle-labs/raffle/lib/httpjson"
	"github.com/raffle-labs/raffle/testutil"
)

var errTestRegistered = errorsmod.Register("httpjsontest", 2, "registered failure")

type echoRequest struct {
	Value string `json:"value"`
}

func newTestServer(t *testing.T, hmacKey string) *httptest.Server {
	engine := httpjson.NewEngine(testutil.GetTestLogger(t))
	protected := engine.Group("/", httpjson.HMACMiddleware(hmacKey, testutil.GetTestLogger(t)))
	protected.POST("/echo", func(c *gin.Context) {
		var req echoRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpjson.AbortWithStatus(c, http.StatusBadRequest, err)

			return
		}
		c.JSON(http.StatusOK, &req)
	})
	engine.GET("/registered", func(c *gin.Context) {
		httpjson.AbortWithError(c, errorsmod.Wrap(errTestRegistered, "with context"))
	})
	engine.GET("/internal", func(c *gin.Context) {
		httpjson.AbortWithError(c, errors.New("boom"))
	})

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	return srv
}

func TestClientWithHMAC(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "secret")
	ctx := context.Background()

	var out echoRequest
	client := httpjson.NewClient(srv.URL, "secret", time.Second)
	require.NoError(t, client.Post(ctx, "/echo", &echoRequest{Value: "hi"}, &out))
	require.Equal(t, "hi", out.Value)

	wrongKey := httpjson.NewClient(srv.URL, "other", time.Second)
	err := wrongKey.Post(ctx, "/echo", &echoRequest{Value: "hi"}, &out)
	require.ErrorContains(t, err, "invalid HMAC")

	noKey := httpjson.NewClient(srv.URL, "", time.Second)
	err = noKey.Post(ctx, "/echo", &echoRequest{Value: "hi"}, &out)
	require.ErrorContains(t, err, "HMAC not provided")
}

func TestRequireHMACMiddleware(t *testing.T) {
	t.Parallel()

	newServer := func(hmacKey string) *httptest.Server {
		engine := httpjson.NewEngine(testutil.GetTestLogger(t))
		engine.POST("/echo", httpjson.RequireHMACMiddleware(hmacKey, testutil.GetTestLogger(t)), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{})
		})
		srv := httptest.NewServer(engine)
		t.Cleanup(srv.Close)

		return srv
	}
	ctx := context.Background()

	// without a key nothing gets through, signed or not
	open := newServer("")
	err := httpjson.NewClient(open.URL, "", time.Second).Post(ctx, "/echo", &echoRequest{Value: "hi"}, nil)
	require.ErrorContains(t, err, "status 401")
	require.ErrorContains(t, err, "HMAC key not configured")
	err = httpjson.NewClient(open.URL, "secret", time.Second).Post(ctx, "/echo", &echoRequest{Value: "hi"}, nil)
	require.ErrorContains(t, err, "status 401")

	keyed := newServer("secret")
	err = httpjson.NewClient(keyed.URL, "", time.Second).Post(ctx, "/echo", &echoRequest{Value: "hi"}, nil)
	require.ErrorContains(t, err, "HMAC not provided")
	require.NoError(t, httpjson.NewClient(keyed.URL, "secret", time.Second).Post(ctx, "/echo", &echoRequest{Value: "hi"}, nil))
}

func TestClientDecodesErrors(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "")
	client := httpjson.NewClient(srv.URL, "", time.Second)
	ctx := context.Background()

	err := client.Get(ctx, "/registered", nil, nil)
	require.ErrorIs(t, err, errTestRegistered)

	err = client.Get(ctx, "/internal", nil, nil)
	require.ErrorContains(t, err, "status 500")
	require.ErrorContains(t, err, "boom")
}
