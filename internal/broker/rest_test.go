package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hftish_go/internal/domain"
	"hftish_go/internal/infra"
)

func newTestClient(t *testing.T, handler http.Handler) *RestClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := infra.DefaultConfig()
	cfg.Broker.RestURL = srv.URL
	cfg.Broker.KeyID = "key"
	cfg.Broker.SecretKey = "secret"
	return NewRestClient(cfg)
}

func TestRestClient_GetAccountParsesDecimalString(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/account", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("APCA-API-KEY-ID"))
		w.Write([]byte(`{"buying_power":"25000.50"}`))
	}))

	acct, err := c.GetAccount(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 25000.50, acct.BuyingPower, 1e-9)
}

func TestRestClient_GetOpenPositionNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"position does not exist"}`, http.StatusNotFound)
	}))

	qty, ok, err := c.GetOpenPosition(context.Background(), "SNAP")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, qty)
}

func TestRestClient_SubmitLimitOrder(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/orders", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "SNAP", body["symbol"])
		assert.Equal(t, "100", body["qty"])
		assert.Equal(t, "buy", body["side"])
		assert.Equal(t, "limit", body["type"])
		assert.Equal(t, "day", body["time_in_force"])
		assert.Equal(t, "10.01", body["limit_price"])
		assert.NotEmpty(t, body["client_order_id"])

		w.Write([]byte(`{"id":"abc","symbol":"SNAP","side":"buy","qty":"100","limit_price":"10.01","status":"new"}`))
	}))

	order, err := c.SubmitLimitOrder(context.Background(), domain.OrderRequest{
		Symbol:      "SNAP",
		Side:        domain.SideBuy,
		Qty:         100,
		LimitPrice:  10.01,
		TimeInForce: "day",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", order.ID)
	assert.Equal(t, int64(100), order.Qty)
	assert.Equal(t, domain.SideBuy, order.Side)
}

func TestRestClient_SubmitFailureIsTransient(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"insufficient balance"}`, http.StatusForbidden)
	}))

	_, err := c.SubmitLimitOrder(context.Background(), domain.OrderRequest{
		Symbol: "SNAP", Side: domain.SideBuy, Qty: 100, LimitPrice: 10.01, TimeInForce: "day",
	})
	require.Error(t, err)
	var terr *TransientError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "submit", terr.Op)
}

func TestRestClient_CancelOrder(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/v2/orders/abc", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))

	ok, err := c.CancelOrder(context.Background(), "abc")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRestClient_CancelAlreadyTerminal(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"order is not cancelable"}`, http.StatusUnprocessableEntity)
	}))

	ok, err := c.CancelOrder(context.Background(), "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRestClient_ListOpenOrders(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "open", r.URL.Query().Get("status"))
		assert.Equal(t, "SNAP", r.URL.Query().Get("symbols"))
		w.Write([]byte(`[{"id":"o1","symbol":"SNAP","side":"sell","qty":"100","limit_price":"9.99","status":"new"}]`))
	}))

	orders, err := c.ListOpenOrders(context.Background(), "SNAP")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.SideSell, orders[0].Side)
}
