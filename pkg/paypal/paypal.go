// Package paypal implements contract.PaymentProvider against the PayPal
// sandbox REST API: OAuth client-credentials, Payouts v2, and Reporting v1.
package paypal

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
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/chayanin-t/payagent/agent/contract"
)

var (
	ErrAuthentication = errors.New("paypal authentication failed")
)

const (
	defaultBaseURL       = "https://api-m.sandbox.paypal.com"
	maxResponseSizeBytes = 2 << 20
	tokenExpirySlack     = 30 * time.Second
	defaultHistoryWindow = 7 * 24 * time.Hour
)

type Config struct {
	ClientID     string        `envconfig:"CLIENT_ID" split_words:"true" required:"true"`
	ClientSecret string        `envconfig:"CLIENT_SECRET" split_words:"true" required:"true"`
	BaseURL      string        `envconfig:"BASE_URL" split_words:"true" default:"https://api-m.sandbox.paypal.com"`
	Timeout      time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
}

// Option customizes a Client.
type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// Client talks to one PayPal environment. The token cache is guarded by a
// mutex so a single client may serve concurrent conversations.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	now          func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

var _ contract.PaymentProvider = (*Client)(nil)

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid paypal base url: %w", err)
	}

	clientID := strings.TrimSpace(cfg.ClientID)
	clientSecret := strings.TrimSpace(cfg.ClientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("paypal client id and secret are required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := &Client{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: timeout},
		now:          time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

func MustNew(cfg Config, opts ...Option) *Client {
	client, err := NewClient(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return client
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Authenticate returns a cached OAuth token, fetching a new one when the
// cached token is missing or about to expire.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry.Add(-tokenExpirySlack)) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	raw, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	var parsed tokenResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", ErrAuthentication, err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuthentication)
	}

	c.token = parsed.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	log.Debug().Time("expiry", c.tokenExpiry).Msg("paypal access token refreshed")
	return c.token, nil
}

type payoutPayload struct {
	SenderBatchHeader struct {
		SenderBatchID string `json:"sender_batch_id"`
		EmailSubject  string `json:"email_subject"`
	} `json:"sender_batch_header"`
	Items []payoutItem `json:"items"`
}

type payoutItem struct {
	RecipientType string       `json:"recipient_type"`
	Amount        payoutAmount `json:"amount"`
	Receiver      string       `json:"receiver"`
	Note          string       `json:"note"`
	SenderItemID  string       `json:"sender_item_id"`
}

type payoutAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type payoutResponse struct {
	BatchHeader struct {
		PayoutBatchID string `json:"payout_batch_id"`
		BatchStatus   string `json:"batch_status"`
	} `json:"batch_header"`
}

// SendMoney initiates a payout via the Payouts v2 API. Each call creates a
// new transfer; it must not be retried on ambiguous failure.
func (c *Client) SendMoney(ctx context.Context, preq contract.PayoutRequest) (contract.Payout, error) {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return contract.Payout{}, err
	}

	currency := strings.TrimSpace(preq.Currency)
	if currency == "" {
		currency = "USD"
	}
	note := preq.Note
	if note == "" {
		note = "Payment from payagent"
	}

	var payload payoutPayload
	payload.SenderBatchHeader.SenderBatchID = "batch_" + uuid.NewString()
	payload.SenderBatchHeader.EmailSubject = "You received a payment"
	payload.Items = []payoutItem{
		{
			RecipientType: "EMAIL",
			Amount: payoutAmount{
				Value:    strconv.FormatFloat(preq.Amount, 'f', 2, 64),
				Currency: currency,
			},
			Receiver:     preq.Recipient,
			Note:         note,
			SenderItemID: "item_" + uuid.NewString(),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return contract.Payout{}, fmt.Errorf("marshal payout payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/payments/payouts", bytes.NewReader(body))
	if err != nil {
		return contract.Payout{}, fmt.Errorf("build payout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	log.Info().
		Str("recipient", preq.Recipient).
		Float64("amount", preq.Amount).
		Str("currency", currency).
		Msg("sending payout")

	raw, err := c.do(req)
	if err != nil {
		return contract.Payout{}, err
	}

	var parsed payoutResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return contract.Payout{}, fmt.Errorf("decode payout response: %w", err)
	}

	return contract.Payout{
		BatchID:     parsed.BatchHeader.PayoutBatchID,
		BatchStatus: parsed.BatchHeader.BatchStatus,
	}, nil
}

type balancesResponse struct {
	Balances []struct {
		Currency         string `json:"currency"`
		AvailableBalance struct {
			CurrencyCode string `json:"currency_code"`
			Value        string `json:"value"`
		} `json:"available_balance"`
	} `json:"balances"`
}

// CheckBalance queries the Reporting balances API, optionally filtered by
// currency code.
func (c *Client) CheckBalance(ctx context.Context, currency string) ([]contract.Balance, error) {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/v1/reporting/balances"
	if cc := strings.TrimSpace(currency); cc != "" {
		endpoint += "?currency_code=" + url.QueryEscape(cc)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build balance request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var parsed balancesResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode balance response: %w", err)
	}

	out := make([]contract.Balance, 0, len(parsed.Balances))
	for _, b := range parsed.Balances {
		available, err := strconv.ParseFloat(strings.TrimSpace(b.AvailableBalance.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("parse balance value %q: %w", b.AvailableBalance.Value, err)
		}
		cc := b.AvailableBalance.CurrencyCode
		if cc == "" {
			cc = b.Currency
		}
		out = append(out, contract.Balance{Currency: cc, Available: available})
	}
	return out, nil
}

type transactionsResponse struct {
	TransactionDetails []struct {
		TransactionInfo struct {
			TransactionID             string `json:"transaction_id"`
			TransactionInitiationDate string `json:"transaction_initiation_date"`
			TransactionStatus         string `json:"transaction_status"`
			TransactionSubject        string `json:"transaction_subject"`
			TransactionAmount         struct {
				CurrencyCode string `json:"currency_code"`
				Value        string `json:"value"`
			} `json:"transaction_amount"`
		} `json:"transaction_info"`
	} `json:"transaction_details"`
}

// GetTransactions lists transaction history. Zero times default to the last
// seven days ending now.
func (c *Client) GetTransactions(ctx context.Context, start, end time.Time) ([]contract.Transaction, error) {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	if end.IsZero() {
		end = c.now()
	}
	if start.IsZero() {
		start = end.Add(-defaultHistoryWindow)
	}

	query := url.Values{}
	query.Set("start_date", formatReportingTime(start))
	query.Set("end_date", formatReportingTime(end))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/reporting/transactions?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build transactions request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var parsed transactionsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode transactions response: %w", err)
	}

	out := make([]contract.Transaction, 0, len(parsed.TransactionDetails))
	for _, d := range parsed.TransactionDetails {
		info := d.TransactionInfo
		amount, _ := strconv.ParseFloat(strings.TrimSpace(info.TransactionAmount.Value), 64)
		out = append(out, contract.Transaction{
			ID:        info.TransactionID,
			Initiated: parseReportingTime(info.TransactionInitiationDate),
			Amount:    amount,
			Currency:  info.TransactionAmount.CurrencyCode,
			Status:    info.TransactionStatus,
			Subject:   info.TransactionSubject,
		})
	}
	return out, nil
}

// do executes the request and returns the body for 2xx responses.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute paypal request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read paypal response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("paypal api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}

// formatReportingTime renders the timestamp format the Reporting API expects.
func formatReportingTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05") + "-0000"
}

func parseReportingTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-0700"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
