package domain

import "github.com/shopspring/decimal"

// Deposit is one USDC deposit into an account.
type Deposit struct {
	TimeMs int64
	Amount decimal.Decimal
	Hash   string
	TxType string
}

// DepositSummary lists deposits newest first with their total.
type DepositSummary struct {
	Total    decimal.Decimal
	Count    int
	Deposits []Deposit
}
