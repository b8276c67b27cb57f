package contract

import (
	"context"
	"time"
)

// PaymentProvider is the external payments backend the tools execute
// against. Implementations must be safe for concurrent use; the provider's
// authentication cache is shared across conversations.
type PaymentProvider interface {
	// Authenticate fetches (or reuses) an access token. Used by tools
	// implicitly and by the credential-check endpoint explicitly.
	Authenticate(ctx context.Context) (string, error)

	// SendMoney initiates a payout. Not idempotent against the provider:
	// callers must never auto-retry it.
	SendMoney(ctx context.Context, req PayoutRequest) (Payout, error)

	// CheckBalance returns account balances, optionally filtered by
	// currency code.
	CheckBalance(ctx context.Context, currency string) ([]Balance, error)

	// GetTransactions returns transaction history for the given window.
	// Zero times mean the provider's default window.
	GetTransactions(ctx context.Context, start, end time.Time) ([]Transaction, error)
}

type PayoutRequest struct {
	Recipient string
	Amount    float64
	Currency  string
	Note      string
}

type Payout struct {
	BatchID     string `json:"payout_batch_id"`
	BatchStatus string `json:"batch_status,omitempty"`
}

type Balance struct {
	Currency  string  `json:"currency"`
	Available float64 `json:"available"`
}

type Transaction struct {
	ID        string    `json:"transaction_id"`
	Initiated time.Time `json:"initiated_at"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	Subject   string    `json:"subject,omitempty"`
}
