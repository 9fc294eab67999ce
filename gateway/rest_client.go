// Package gateway implements the venue capability over a signed REST API
// plus a websocket execution stream. The routing core only ever sees the
// venue.Client interface.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"order-gateway-go/metrics"
	"order-gateway-go/venue"
)

// RESTClient talks to one venue's REST API. HTTPClient is injectable so
// tests can point it at httptest servers; it must carry a timeout.
type RESTClient struct {
	BaseURL    string
	APIKey     string
	Secret     string
	HTTPClient *http.Client
	Limiter    RateLimiter
}

// NewDefaultHTTPClient returns an http.Client with a sane timeout.
func NewDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

type restOrderRequest struct {
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"time_in_force"`
	Quantity      string `json:"qty"`
	LimitPrice    string `json:"limit_price,omitempty"`
	StopPrice     string `json:"stop_price,omitempty"`
	ClientOrderID string `json:"client_order_id"`
}

type restOrder struct {
	ID            string    `json:"id"`
	ClientOrderID string    `json:"client_order_id"`
	Symbol        string    `json:"symbol"`
	Side          string    `json:"side"`
	Type          string    `json:"type"`
	TimeInForce   string    `json:"time_in_force"`
	Status        string    `json:"status"`
	Quantity      string    `json:"qty"`
	FilledQty     string    `json:"filled_qty"`
	LimitPrice    *string   `json:"limit_price"`
	StopPrice     *string   `json:"stop_price"`
	FilledAvg     *string   `json:"filled_avg_price"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type restPosition struct {
	Symbol     string `json:"symbol"`
	LongUnits  string `json:"long_units"`
	LongPL     string `json:"long_pl"`
	ShortUnits string `json:"short_units"`
	ShortPL    string `json:"short_pl"`
}

type restAccount struct {
	Equity         string `json:"equity"`
	Cash           string `json:"cash"`
	PortfolioValue string `json:"portfolio_value"`
	BuyingPower    string `json:"buying_power"`
}

type restAsset struct {
	Symbol       string `json:"symbol"`
	Fractionable bool   `json:"fractionable"`
	MinIncrement string `json:"min_trade_increment"`
}

type restError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *RESTClient) SubmitOrder(ctx context.Context, req venue.OrderRequest) (string, error) {
	body := restOrderRequest{
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		TimeInForce:   req.TimeInForce,
		Quantity:      req.Quantity.String(),
		ClientOrderID: req.ClientOrderID,
	}
	if req.LimitPrice != nil {
		body.LimitPrice = req.LimitPrice.String()
	}
	if req.StopPrice != nil {
		body.StopPrice = req.StopPrice.String()
	}
	var out restOrder
	if err := c.do(ctx, "submit_order", http.MethodPost, "/v1/orders", nil, body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("venue returned empty order id")
	}
	return out.ID, nil
}

func (c *RESTClient) CancelOrder(ctx context.Context, venueOrderID string) error {
	path := "/v1/orders/" + url.PathEscape(venueOrderID)
	return c.do(ctx, "cancel_order", http.MethodDelete, path, nil, nil, nil)
}

func (c *RESTClient) Orders(ctx context.Context, status, symbol string) ([]venue.Order, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if symbol != "" {
		q.Set("symbol", symbol)
	}
	var out []restOrder
	if err := c.do(ctx, "list_orders", http.MethodGet, "/v1/orders", q, nil, &out); err != nil {
		return nil, err
	}
	orders := make([]venue.Order, 0, len(out))
	for _, ro := range out {
		orders = append(orders, ro.toVenue())
	}
	return orders, nil
}

func (c *RESTClient) Positions(ctx context.Context, symbol string) ([]venue.Position, error) {
	q := url.Values{}
	if symbol != "" {
		q.Set("symbol", symbol)
	}
	var out []restPosition
	if err := c.do(ctx, "list_positions", http.MethodGet, "/v1/positions", q, nil, &out); err != nil {
		return nil, err
	}
	positions := make([]venue.Position, 0, len(out))
	for _, rp := range out {
		positions = append(positions, venue.Position{
			Symbol:     rp.Symbol,
			LongUnits:  parseDec(rp.LongUnits),
			LongPL:     parseDec(rp.LongPL),
			ShortUnits: parseDec(rp.ShortUnits),
			ShortPL:    parseDec(rp.ShortPL),
		})
	}
	return positions, nil
}

func (c *RESTClient) Account(ctx context.Context) (venue.Account, error) {
	var out restAccount
	if err := c.do(ctx, "get_account", http.MethodGet, "/v1/account", nil, nil, &out); err != nil {
		return venue.Account{}, err
	}
	return venue.Account{
		Equity:         parseDec(out.Equity),
		Cash:           parseDec(out.Cash),
		PortfolioValue: parseDec(out.PortfolioValue),
		BuyingPower:    parseDec(out.BuyingPower),
	}, nil
}

func (c *RESTClient) Asset(ctx context.Context, symbol string) (venue.Asset, error) {
	path := "/v1/assets/" + url.PathEscape(symbol)
	var out restAsset
	if err := c.do(ctx, "get_asset", http.MethodGet, path, nil, nil, &out); err != nil {
		var rej *venue.RejectionError
		if errors.As(err, &rej) && rej.Code == http.StatusNotFound {
			return venue.Asset{}, fmt.Errorf("%w: %s", venue.ErrAssetNotFound, symbol)
		}
		return venue.Asset{}, err
	}
	return venue.Asset{
		Symbol:       out.Symbol,
		Fractionable: out.Fractionable,
		MinIncrement: parseDec(out.MinIncrement),
	}, nil
}

// do signs and executes one request. 4xx responses become RejectionError;
// everything else (transport, 5xx) is returned as a plain error so the
// router can tell definitive declines from unknown outcomes.
func (c *RESTClient) do(ctx context.Context, op, method, path string, query url.Values, body, out interface{}) error {
	if c.HTTPClient == nil {
		return fmt.Errorf("http client not set")
	}
	if c.Limiter != nil {
		c.Limiter.Wait()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	ts := strconv.FormatInt(time.Now().UTC().UnixMilli(), 10)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.APIKey)
	req.Header.Set("X-TIMESTAMP", ts)
	req.Header.Set("X-SIGNATURE", c.sign(ts, method, path, payload))

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	metrics.VenueRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		var re restError
		msg := string(raw)
		if json.Unmarshal(raw, &re) == nil && re.Message != "" {
			msg = re.Message
		}
		return &venue.RejectionError{Code: resp.StatusCode, Message: msg}
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// sign computes HMAC-SHA256 over timestamp+method+path+body.
func (c *RESTClient) sign(ts, method, path string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.Secret))
	mac.Write([]byte(ts))
	mac.Write([]byte(method))
	mac.Write([]byte(path))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (ro restOrder) toVenue() venue.Order {
	return venue.Order{
		VenueOrderID:   ro.ID,
		ClientOrderID:  ro.ClientOrderID,
		Symbol:         ro.Symbol,
		Side:           ro.Side,
		Type:           ro.Type,
		TimeInForce:    ro.TimeInForce,
		Status:         ro.Status,
		Quantity:       parseDec(ro.Quantity),
		FilledQuantity: parseDec(ro.FilledQty),
		LimitPrice:     parseDecPtr(ro.LimitPrice),
		StopPrice:      parseDecPtr(ro.StopPrice),
		AvgFillPrice:   parseDecPtr(ro.FilledAvg),
		UpdatedAt:      ro.UpdatedAt,
	}
}

func parseDec(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseDecPtr(s *string) *decimal.Decimal {
	if s == nil || *s == "" {
		return nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil
	}
	return &d
}

var _ venue.Client = (*RESTClient)(nil)
