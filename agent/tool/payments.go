package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/chayanin-t/payagent/agent/contract"
)

const (
	ToolSendMoney       = "send_money"
	ToolCheckBalance    = "check_balance"
	ToolGetTransactions = "get_transactions"
)

// RegisterPaymentTools wires the three payment capabilities into the
// registry. All three handlers receive the payment provider at dispatch.
func RegisterPaymentTools(r *Registry) error {
	entries := []struct {
		info *schema.ToolInfo
		run  ProviderHandler
	}{
		{sendMoneyInfo(), executeSendMoney},
		{checkBalanceInfo(), executeCheckBalance},
		{getTransactionsInfo(), executeGetTransactions},
	}
	for _, e := range entries {
		if err := r.RegisterWithProvider(e.info, e.run); err != nil {
			return err
		}
	}
	return nil
}

func sendMoneyInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolSendMoney,
		Desc: "Send money to a recipient using PayPal (sandbox mode).",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"recipient": {Type: schema.String, Desc: "Recipient's PayPal email address", Required: true},
			"amount":    {Type: schema.Number, Desc: "Amount to send", Required: true},
			"currency":  {Type: schema.String, Desc: "Currency code (e.g., USD)"},
			"note":      {Type: schema.String, Desc: "Optional note to include with the payment"},
		}),
	}
}

func checkBalanceInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolCheckBalance,
		Desc: "Check PayPal account balance (sandbox mode).",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"currency": {Type: schema.String, Desc: "Currency code to filter results (e.g., USD)"},
		}),
	}
}

func getTransactionsInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolGetTransactions,
		Desc: "Get transaction history from PayPal (sandbox mode).",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"start_date": {Type: schema.String, Desc: "Start date in ISO format (e.g., 2023-01-01T00:00:00-0000)"},
			"end_date":   {Type: schema.String, Desc: "End date in ISO format (e.g., 2023-01-31T23:59:59-0000)"},
		}),
	}
}

func executeSendMoney(ctx context.Context, provider contract.PaymentProvider, args map[string]any) contract.ToolResult {
	recipient, ok := stringArg(args, "recipient")
	if !ok || recipient == "" {
		return contract.ErrorResult("recipient is required")
	}
	amount, ok := numberArg(args, "amount")
	if !ok {
		return contract.ErrorResult("amount is required and must be a number")
	}
	if amount <= 0 {
		return contract.ErrorResult("amount must be greater than zero")
	}
	currency, _ := stringArg(args, "currency")
	note, _ := stringArg(args, "note")

	payout, err := provider.SendMoney(ctx, contract.PayoutRequest{
		Recipient: recipient,
		Amount:    amount,
		Currency:  currency,
		Note:      note,
	})
	if err != nil {
		return contract.ErrorResult(err.Error())
	}

	result := contract.SuccessResult(map[string]any{
		"payout_batch_id": payout.BatchID,
	})
	result.Message = "Payment initiated successfully"
	if payout.BatchStatus != "" {
		result.Data["batch_status"] = payout.BatchStatus
	}
	return result
}

func executeCheckBalance(ctx context.Context, provider contract.PaymentProvider, args map[string]any) contract.ToolResult {
	currency, _ := stringArg(args, "currency")

	balances, err := provider.CheckBalance(ctx, currency)
	if err != nil {
		return contract.ErrorResult(err.Error())
	}

	if len(balances) == 1 {
		return contract.SuccessResult(map[string]any{
			"balance":  balances[0].Available,
			"currency": balances[0].Currency,
		})
	}
	return contract.SuccessResult(map[string]any{
		"balances": balances,
	})
}

func executeGetTransactions(ctx context.Context, provider contract.PaymentProvider, args map[string]any) contract.ToolResult {
	start, err := timeArg(args, "start_date")
	if err != nil {
		return contract.ErrorResult(err.Error())
	}
	end, err := timeArg(args, "end_date")
	if err != nil {
		return contract.ErrorResult(err.Error())
	}

	transactions, err := provider.GetTransactions(ctx, start, end)
	if err != nil {
		return contract.ErrorResult(err.Error())
	}

	return contract.SuccessResult(map[string]any{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

func stringArg(args map[string]any, key string) (string, bool) {
	raw, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

func numberArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

var transactionDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02",
}

// timeArg parses an optional date argument; absent means zero time, which
// the provider maps to its default window.
func timeArg(args map[string]any, key string) (time.Time, error) {
	s, ok := stringArg(args, key)
	if !ok || s == "" {
		return time.Time{}, nil
	}
	for _, layout := range transactionDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%s must be an ISO timestamp, got %q", key, s)
}
