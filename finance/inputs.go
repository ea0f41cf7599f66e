package finance

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/wallet-ledger/ledger"
)

// Inputs arrive already format-validated by the caller. The service still
// re-checks amounts and ownership.

type CreateWalletInput struct {
	Name       string
	CategoryID string
	Balance    decimal.Decimal // opening balance, may be zero
}

type UpdateWalletInput struct {
	Name       string
	CategoryID string
}

type CreateIncomeInput struct {
	WalletID    ledger.WalletID
	CategoryID  string
	Title       string
	Amount      decimal.Decimal
	Description string
	PublishedAt time.Time
}

// UpdateIncomeInput carries descriptive fields only. Amount and wallet are
// fixed at creation.
type UpdateIncomeInput struct {
	CategoryID  string
	Title       string
	Description string
	PublishedAt time.Time
}

type CreateTransactionInput struct {
	WalletID    ledger.WalletID
	CategoryID  string
	Title       string
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	Description string
	PublishedAt time.Time

	// IsDebt turns the expense into a split bill: one receivable target per
	// participant. Target amounts are not checked against Amount.
	IsDebt  bool
	Targets []TargetInput
}

type UpdateTransactionInput struct {
	CategoryID  string
	Title       string
	Description string
	PublishedAt time.Time
}

type TargetInput struct {
	UserID  *string
	Name    string
	Amount  decimal.Decimal
	DueDate *time.Time
}

type CreateTransferInput struct {
	FromWalletID ledger.WalletID
	ToWalletID   ledger.WalletID
	Amount       decimal.Decimal
	Fee          decimal.Decimal
	Description  string
	PublishedAt  time.Time
}

// CreateDebtInput opens a debt with a single counterparty. Amount is the
// principal that moves through the wallet; the target owes Amount+Fee.
type CreateDebtInput struct {
	Type        DebtType
	WalletID    ledger.WalletID
	Title       string
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	Description string
	PublishedAt time.Time
	Target      TargetInput // Target.Amount is ignored
}

type UpdateDebtInput struct {
	Title       string
	Description string
	PublishedAt time.Time
	TargetName  string
	DueDate     *time.Time
}

type RecordPaymentInput struct {
	TargetID string
	WalletID ledger.WalletID
	Amount   decimal.Decimal
	Note     string
	PaidAt   time.Time
}

// RecordMutationInput is the raw ledger entry point for callers that own
// their origin record.
type RecordMutationInput struct {
	OriginKind ledger.OriginKind
	OriginID   string
	OriginName string
	WalletID   ledger.WalletID
	Amount     decimal.Decimal
	Direction  ledger.Direction
}
