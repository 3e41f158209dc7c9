package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/simonvc/fundledger/internal/ledger"
)

// Client talks to a fundledger server. Calls are made either with a
// bearer token or with the gateway actor headers.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	actor      ledger.Actor
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithActor sends actor in the X-Actor-* headers, for servers running
// behind a trusted gateway.
func WithActor(actor ledger.Actor) Option {
	return func(c *Client) { c.actor = actor }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Funds

func (c *Client) CreateFund(ctx context.Context, name string, typ ledger.FundType, description string) (*ledger.Fund, error) {
	body := map[string]any{"name": name, "type": typ, "description": description}
	var result ledger.Fund
	if err := c.post(ctx, "/api/v1/funds", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListFunds(ctx context.Context, typ ledger.FundType, activeOnly bool) ([]ledger.Fund, error) {
	params := url.Values{}
	if typ != "" {
		params.Set("type", string(typ))
	}
	if activeOnly {
		params.Set("active", "true")
	}
	var result []ledger.Fund
	if err := c.get(ctx, "/api/v1/funds", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) SeedFunds(ctx context.Context) ([]ledger.Fund, error) {
	var result []ledger.Fund
	if err := c.post(ctx, "/api/v1/funds/seed", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) GetFund(ctx context.Context, id int64) (*ledger.Fund, error) {
	var result ledger.Fund
	if err := c.get(ctx, fundPath(id, ""), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) FundBalance(ctx context.Context, id int64) (*ledger.FundBalance, error) {
	var result ledger.FundBalance
	if err := c.get(ctx, fundPath(id, "/balance"), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ReconcileFund(ctx context.Context, id int64) (*ledger.Reconciliation, error) {
	var result ledger.Reconciliation
	if err := c.get(ctx, fundPath(id, "/reconcile"), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) DeactivateFund(ctx context.Context, id int64) (*ledger.Fund, error) {
	var result ledger.Fund
	if err := c.post(ctx, fundPath(id, "/deactivate"), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func fundPath(id int64, suffix string) string {
	return "/api/v1/funds/" + strconv.FormatInt(id, 10) + suffix
}

func (c *Client) GetChart(ctx context.Context) ([]ledger.ChartEntry, error) {
	var result []ledger.ChartEntry
	if err := c.get(ctx, "/api/v1/chart", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Churches

func (c *Client) CreateChurch(ctx context.Context, ch *ledger.Church) (*ledger.Church, error) {
	var result ledger.Church
	if err := c.post(ctx, "/api/v1/churches", ch, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListChurches(ctx context.Context) ([]ledger.Church, error) {
	var result []ledger.Church
	if err := c.get(ctx, "/api/v1/churches", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Ledger

func (c *Client) Post(ctx context.Context, req ledger.PostRequest) (*ledger.Transaction, error) {
	var result ledger.Transaction
	if err := c.post(ctx, "/api/v1/transactions", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Transfer(ctx context.Context, req ledger.TransferRequest) (*ledger.TransferResult, error) {
	var result ledger.TransferResult
	if err := c.post(ctx, "/api/v1/transfers", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type TxnQuery struct {
	FundID   int64
	ChurchID int64
	EventID  string
	ReportID string
	From     string
	To       string
	Limit    int
	Offset   int
}

func (q TxnQuery) values() url.Values {
	v := url.Values{}
	setInt(v, "fund_id", q.FundID)
	setInt(v, "church_id", q.ChurchID)
	setStr(v, "event_id", q.EventID)
	setStr(v, "report_id", q.ReportID)
	setStr(v, "from", q.From)
	setStr(v, "to", q.To)
	setInt(v, "limit", int64(q.Limit))
	setInt(v, "offset", int64(q.Offset))
	return v
}

func (c *Client) ListTransactions(ctx context.Context, q TxnQuery) ([]ledger.Transaction, error) {
	var result []ledger.Transaction
	if err := c.get(ctx, "/api/v1/transactions", q.values(), &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) GetTransaction(ctx context.Context, id string) (*ledger.Transaction, error) {
	var result ledger.Transaction
	if err := c.get(ctx, "/api/v1/transactions/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type ActivityQuery struct {
	FundID   int64
	ChurchID int64
	EventID  string
	ActorID  string
	Since    time.Time
	Limit    int
}

func (c *Client) Activity(ctx context.Context, q ActivityQuery) ([]ledger.Activity, error) {
	v := url.Values{}
	setInt(v, "fund_id", q.FundID)
	setInt(v, "church_id", q.ChurchID)
	setStr(v, "event_id", q.EventID)
	setStr(v, "actor_id", q.ActorID)
	setInt(v, "limit", int64(q.Limit))
	if !q.Since.IsZero() {
		v.Set("since", q.Since.Format(time.RFC3339))
	}
	var result []ledger.Activity
	if err := c.get(ctx, "/api/v1/activity", v, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Ping checks that the server and its database are reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, "/healthz", nil, nil)
}

func setInt(v url.Values, key string, n int64) {
	if n != 0 {
		v.Set(key, strconv.FormatInt(n, 10))
	}
}

func setStr(v url.Values, key, s string) {
	if s != "" {
		v.Set(key, s)
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return c.send(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	return c.send(ctx, http.MethodPost, path, body, result)
}

func (c *Client) send(ctx context.Context, method, path string, body any, result any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authenticate(req)
	return c.doRequest(req, result)
}

func (c *Client) authenticate(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
		return
	}
	if c.actor.ID != "" {
		req.Header.Set("X-Actor-ID", c.actor.ID)
		req.Header.Set("X-Actor-Role", string(c.actor.Role))
		if c.actor.ChurchID != nil {
			req.Header.Set("X-Actor-Church", strconv.FormatInt(*c.actor.ChurchID, 10))
		}
	}
}

// doRequest decodes error bodies back into *ledger.Error, so callers can
// match them with errors.Is against the ledger sentinels.
func (c *Client) doRequest(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr ledger.Error
		if json.Unmarshal(bodyBytes, &apiErr) == nil && apiErr.Message != "" {
			if apiErr.Kind != "" {
				apiErr.Message = strings.TrimPrefix(apiErr.Message, apiErr.Field+": ")
				return fmt.Errorf("server error (%d): %w", resp.StatusCode, &apiErr)
			}
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(bodyBytes))
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.Unmarshal(bodyBytes, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
