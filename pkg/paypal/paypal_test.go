package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chayanin-t/payagent/agent/contract"
)

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func tokenHandler(counter *int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if counter != nil {
			*counter++
		}
		fmt.Fprint(w, `{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`)
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{ClientID: "id"})
	if err == nil {
		t.Fatal("expected error for missing client secret")
	}
}

func TestAuthenticateCachesToken(t *testing.T) {
	t.Parallel()

	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(&tokenCalls))
	server := newTestServer(t, mux)

	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	client := MustNew(
		Config{ClientID: "id", ClientSecret: "secret", BaseURL: server.URL},
		WithHTTPClient(server.Client()),
		WithClock(func() time.Time { return now }),
	)

	for i := 0; i < 3; i++ {
		token, err := client.Authenticate(context.Background())
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if token != "tok-1" {
			t.Fatalf("unexpected token %q", token)
		}
	}
	if tokenCalls != 1 {
		t.Fatalf("expected 1 token fetch, got %d", tokenCalls)
	}

	// Past expiry the token must be refreshed.
	now = now.Add(2 * time.Hour)
	if _, err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate() after expiry error = %v", err)
	}
	if tokenCalls != 2 {
		t.Fatalf("expected refresh, got %d token fetches", tokenCalls)
	}
}

func TestAuthenticateFailure(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	})
	server := newTestServer(t, mux)

	client := MustNew(
		Config{ClientID: "id", ClientSecret: "bad", BaseURL: server.URL},
		WithHTTPClient(server.Client()),
	)

	_, err := client.Authenticate(context.Background())
	if err == nil {
		t.Fatal("expected authentication error")
	}
	if !strings.Contains(err.Error(), "authentication failed") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSendMoneyBuildsPayout(t *testing.T) {
	t.Parallel()

	var gotPayload payoutPayload
	var gotAuth string

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(nil))
	mux.HandleFunc("/v2/payments/payouts", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payout payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"batch_header":{"payout_batch_id":"BATCH1","batch_status":"PENDING"}}`)
	})
	server := newTestServer(t, mux)

	client := MustNew(
		Config{ClientID: "id", ClientSecret: "secret", BaseURL: server.URL},
		WithHTTPClient(server.Client()),
	)

	payout, err := client.SendMoney(context.Background(), contract.PayoutRequest{
		Recipient: "alice@example.com",
		Amount:    12.5,
	})
	if err != nil {
		t.Fatalf("SendMoney() error = %v", err)
	}
	if payout.BatchID != "BATCH1" || payout.BatchStatus != "PENDING" {
		t.Fatalf("unexpected payout: %+v", payout)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("unexpected authorization header %q", gotAuth)
	}
	if len(gotPayload.Items) != 1 {
		t.Fatalf("expected 1 payout item, got %d", len(gotPayload.Items))
	}
	item := gotPayload.Items[0]
	if item.Receiver != "alice@example.com" {
		t.Fatalf("unexpected receiver %q", item.Receiver)
	}
	if item.Amount.Value != "12.50" || item.Amount.Currency != "USD" {
		t.Fatalf("unexpected amount: %+v", item.Amount)
	}
}

func TestCheckBalanceParsesAmounts(t *testing.T) {
	t.Parallel()

	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(nil))
	mux.HandleFunc("/v1/reporting/balances", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"balances":[{"currency":"USD","available_balance":{"currency_code":"USD","value":"42.00"}}]}`)
	})
	server := newTestServer(t, mux)

	client := MustNew(
		Config{ClientID: "id", ClientSecret: "secret", BaseURL: server.URL},
		WithHTTPClient(server.Client()),
	)

	balances, err := client.CheckBalance(context.Background(), "USD")
	if err != nil {
		t.Fatalf("CheckBalance() error = %v", err)
	}
	if gotQuery != "currency_code=USD" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if len(balances) != 1 || balances[0].Available != 42.0 || balances[0].Currency != "USD" {
		t.Fatalf("unexpected balances: %+v", balances)
	}
}

func TestGetTransactionsDefaultWindow(t *testing.T) {
	t.Parallel()

	var gotStart, gotEnd string
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(nil))
	mux.HandleFunc("/v1/reporting/transactions", func(w http.ResponseWriter, r *http.Request) {
		gotStart = r.URL.Query().Get("start_date")
		gotEnd = r.URL.Query().Get("end_date")
		fmt.Fprint(w, `{"transaction_details":[{"transaction_info":{
			"transaction_id":"T1",
			"transaction_initiation_date":"2026-01-03T10:00:00-0000",
			"transaction_status":"S",
			"transaction_amount":{"currency_code":"USD","value":"-5.00"}}}]}`)
	})
	server := newTestServer(t, mux)

	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	client := MustNew(
		Config{ClientID: "id", ClientSecret: "secret", BaseURL: server.URL},
		WithHTTPClient(server.Client()),
		WithClock(func() time.Time { return now }),
	)

	txns, err := client.GetTransactions(context.Background(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("GetTransactions() error = %v", err)
	}
	if gotEnd != "2026-01-10T00:00:00-0000" {
		t.Fatalf("unexpected end_date %q", gotEnd)
	}
	if gotStart != "2026-01-03T00:00:00-0000" {
		t.Fatalf("unexpected start_date %q", gotStart)
	}
	if len(txns) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txns))
	}
	if txns[0].ID != "T1" || txns[0].Amount != -5.0 {
		t.Fatalf("unexpected transaction: %+v", txns[0])
	}
}

func TestAPIErrorSurfacesStatus(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(nil))
	mux.HandleFunc("/v1/reporting/balances", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"name":"INTERNAL_ERROR"}`, http.StatusInternalServerError)
	})
	server := newTestServer(t, mux)

	client := MustNew(
		Config{ClientID: "id", ClientSecret: "secret", BaseURL: server.URL},
		WithHTTPClient(server.Client()),
	)

	_, err := client.CheckBalance(context.Background(), "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status=500") {
		t.Fatalf("unexpected error: %v", err)
	}
}
