package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hftish_go/internal/domain"
	"hftish_go/internal/infra"
)

// RestClient is the live Gateway implementation over the broker's REST API.
// Money and quantity fields arrive as decimal strings and are parsed with
// shopspring/decimal before conversion. A token bucket and circuit breaker
// guard the endpoint.
type RestClient struct {
	baseURL string
	keyID   string
	secret  string
	http    *http.Client
	limiter *infra.RateLimiter
	breaker *infra.CircuitBreaker
}

// NewRestClient creates a REST gateway from config.
func NewRestClient(cfg *infra.Config) *RestClient {
	return &RestClient{
		baseURL: cfg.Broker.RestURL,
		keyID:   cfg.Broker.KeyID,
		secret:  cfg.Broker.SecretKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: infra.NewRateLimiter(10, 3),
		breaker: infra.DefaultCircuitBreaker("broker-rest"),
	}
}

type clockPayload struct {
	IsOpen    bool      `json:"is_open"`
	NextOpen  time.Time `json:"next_open"`
	NextClose time.Time `json:"next_close"`
}

type accountPayload struct {
	BuyingPower string `json:"buying_power"`
}

type positionPayload struct {
	Qty string `json:"qty"`
}

type orderPayload struct {
	ID         string `json:"id"`
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	Qty        string `json:"qty"`
	LimitPrice string `json:"limit_price"`
	Status     string `json:"status"`
}

// GetClock implements Gateway.
func (c *RestClient) GetClock(ctx context.Context) (domain.Clock, error) {
	var payload clockPayload
	if err := c.do(ctx, http.MethodGet, "/v2/clock", nil, &payload); err != nil {
		return domain.Clock{}, transient("clock", err)
	}
	return domain.Clock{
		IsOpen:    payload.IsOpen,
		NextOpen:  payload.NextOpen,
		NextClose: payload.NextClose,
	}, nil
}

// GetAccount implements Gateway.
func (c *RestClient) GetAccount(ctx context.Context) (domain.Account, error) {
	var payload accountPayload
	if err := c.do(ctx, http.MethodGet, "/v2/account", nil, &payload); err != nil {
		return domain.Account{}, transient("account", err)
	}
	bp, err := decimal.NewFromString(payload.BuyingPower)
	if err != nil {
		return domain.Account{}, transient("account", fmt.Errorf("parse buying_power %q: %w", payload.BuyingPower, err))
	}
	return domain.Account{BuyingPower: bp.InexactFloat64()}, nil
}

// GetOpenPosition implements Gateway. A 404 means no open position.
func (c *RestClient) GetOpenPosition(ctx context.Context, symbol string) (int64, bool, error) {
	var payload positionPayload
	err := c.do(ctx, http.MethodGet, "/v2/positions/"+url.PathEscape(symbol), nil, &payload)
	if err != nil {
		var httpErr *httpStatusError
		if errors.As(err, &httpErr) && httpErr.status == http.StatusNotFound {
			return 0, false, nil
		}
		return 0, false, transient("position", err)
	}
	qty, err := decimal.NewFromString(payload.Qty)
	if err != nil {
		return 0, false, transient("position", fmt.Errorf("parse qty %q: %w", payload.Qty, err))
	}
	return qty.IntPart(), true, nil
}

// ListOpenOrders implements Gateway.
func (c *RestClient) ListOpenOrders(ctx context.Context, symbol string) ([]domain.Order, error) {
	path := "/v2/orders?status=open&symbols=" + url.QueryEscape(symbol)
	var payloads []orderPayload
	if err := c.do(ctx, http.MethodGet, path, nil, &payloads); err != nil {
		return nil, transient("orders", err)
	}
	orders := make([]domain.Order, 0, len(payloads))
	for _, p := range payloads {
		orders = append(orders, p.toDomain())
	}
	return orders, nil
}

// SubmitLimitOrder implements Gateway. A fresh client_order_id makes retries
// by outer layers dedupe-safe on the broker side.
func (c *RestClient) SubmitLimitOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error) {
	body := map[string]string{
		"symbol":          req.Symbol,
		"qty":             strconv.FormatInt(req.Qty, 10),
		"side":            req.Side.String(),
		"type":            "limit",
		"time_in_force":   req.TimeInForce,
		"limit_price":     decimal.NewFromFloat(req.LimitPrice).StringFixed(2),
		"client_order_id": uuid.New().String(),
	}
	var payload orderPayload
	if err := c.do(ctx, http.MethodPost, "/v2/orders", body, &payload); err != nil {
		return domain.Order{}, transient("submit", err)
	}
	return payload.toDomain(), nil
}

// CancelOrder implements Gateway. Both 2xx and an already-terminal 422 count
// as the order no longer being open.
func (c *RestClient) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	err := c.do(ctx, http.MethodDelete, "/v2/orders/"+url.PathEscape(orderID), nil, nil)
	if err != nil {
		var httpErr *httpStatusError
		if errors.As(err, &httpErr) && httpErr.status == http.StatusUnprocessableEntity {
			return false, nil
		}
		return false, transient("cancel", err)
	}
	return true, nil
}

type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.status, e.body)
}

func (c *RestClient) do(ctx context.Context, method, path string, body any, out any) error {
	if !c.breaker.Allow() {
		return fmt.Errorf("circuit breaker open")
	}
	c.limiter.Wait()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("APCA-API-KEY-ID", c.keyID)
	req.Header.Set("APCA-API-SECRET-KEY", c.secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure()
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Client-side rejections are not endpoint failures; only 5xx trips
		// the breaker.
		if resp.StatusCode >= 500 {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
		return &httpStatusError{status: resp.StatusCode, body: string(data)}
	}

	c.breaker.RecordSuccess()
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (p orderPayload) toDomain() domain.Order {
	qty, _ := decimal.NewFromString(p.Qty)
	limit, _ := decimal.NewFromString(p.LimitPrice)
	return domain.Order{
		ID:         p.ID,
		Symbol:     p.Symbol,
		Side:       domain.ParseSide(p.Side),
		Qty:        qty.IntPart(),
		LimitPrice: limit.InexactFloat64(),
		Status:     p.Status,
	}
}
