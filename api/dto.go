/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the finance and ledger models from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts are decimal.Decimal on both sides. Responses encode them as JSON
  strings ("12.50"); requests accept either a string or a number.

VALIDATION:
  Format checks happen in handlers; amount and ownership rules are enforced
  again by the finance service.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/wallet-ledger/finance"
	"github.com/warp/wallet-ledger/ledger"
)

// =============================================================================
// WALLETS & MUTATIONS
// =============================================================================

type WalletDTO struct {
	ID         string          `json:"id"`
	CategoryID string          `json:"category_id,omitempty"`
	Name       string          `json:"name"`
	Balance    decimal.Decimal `json:"balance"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type CreateWalletRequest struct {
	Name       string          `json:"name"`
	CategoryID string          `json:"category_id"`
	Balance    decimal.Decimal `json:"balance"`
}

type UpdateWalletRequest struct {
	Name       string `json:"name"`
	CategoryID string `json:"category_id"`
}

type MutationDTO struct {
	ID             string          `json:"id"`
	WalletID       string          `json:"wallet_id"`
	Sequence       int64           `json:"sequence"`
	Type           string          `json:"type"`
	LastBalance    decimal.Decimal `json:"last_balance"`
	Amount         decimal.Decimal `json:"amount"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	Description    string          `json:"description"`
	OriginKind     string          `json:"origin_kind"`
	OriginID       string          `json:"origin_id"`
	CreatedAt      time.Time       `json:"created_at"`
}

type ReconciliationDTO struct {
	WalletID        string          `json:"wallet_id"`
	Balanced        bool            `json:"balanced"`
	StoredBalance   decimal.Decimal `json:"stored_balance"`
	ReplayedBalance decimal.Decimal `json:"replayed_balance"`
	TotalCredits    decimal.Decimal `json:"total_credits"`
	TotalDebits     decimal.Decimal `json:"total_debits"`
	Mutations       int             `json:"mutations"`
	Drift           string          `json:"drift,omitempty"`
}

// =============================================================================
// INCOMES & TRANSACTIONS
// =============================================================================

type IncomeDTO struct {
	ID          string          `json:"id"`
	WalletID    string          `json:"wallet_id"`
	CategoryID  string          `json:"category_id,omitempty"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	PublishedAt time.Time       `json:"published_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

type CreateIncomeRequest struct {
	WalletID    string          `json:"wallet_id"`
	CategoryID  string          `json:"category_id"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	PublishedAt *time.Time      `json:"published_at"`
}

// UpdateRecordRequest is shared by incomes and transactions; only
// descriptive fields can change.
type UpdateRecordRequest struct {
	CategoryID  string     `json:"category_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	PublishedAt *time.Time `json:"published_at"`
}

type TransactionDTO struct {
	ID          string          `json:"id"`
	WalletID    string          `json:"wallet_id"`
	CategoryID  string          `json:"category_id,omitempty"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Fee         decimal.Decimal `json:"fee"`
	Description string          `json:"description,omitempty"`
	IsDebt      bool            `json:"is_debt"`
	PublishedAt time.Time       `json:"published_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

type TargetRequest struct {
	UserID  *string         `json:"user_id"`
	Name    string          `json:"name"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate *time.Time      `json:"due_date"`
}

type CreateTransactionRequest struct {
	WalletID    string          `json:"wallet_id"`
	CategoryID  string          `json:"category_id"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Fee         decimal.Decimal `json:"fee"`
	Description string          `json:"description"`
	PublishedAt *time.Time      `json:"published_at"`
	IsDebt      bool            `json:"is_debt"`
	Targets     []TargetRequest `json:"targets"`
}

// =============================================================================
// TRANSFERS
// =============================================================================

type TransferDTO struct {
	ID           string          `json:"id"`
	FromWalletID string          `json:"from_wallet_id"`
	ToWalletID   string          `json:"to_wallet_id"`
	Amount       decimal.Decimal `json:"amount"`
	Fee          decimal.Decimal `json:"fee"`
	Description  string          `json:"description,omitempty"`
	PublishedAt  time.Time       `json:"published_at"`
	CreatedAt    time.Time       `json:"created_at"`
}

type CreateTransferRequest struct {
	FromWalletID string          `json:"from_wallet_id"`
	ToWalletID   string          `json:"to_wallet_id"`
	Amount       decimal.Decimal `json:"amount"`
	Fee          decimal.Decimal `json:"fee"`
	Description  string          `json:"description"`
	PublishedAt  *time.Time      `json:"published_at"`
}

// =============================================================================
// DEBTS
// =============================================================================

type DebtTargetDTO struct {
	ID              string          `json:"id"`
	UserID          *string         `json:"user_id,omitempty"`
	Name            string          `json:"name"`
	Amount          decimal.Decimal `json:"amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Status          string          `json:"status"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
}

type DebtDTO struct {
	ID            string          `json:"id"`
	WalletID      string          `json:"wallet_id"`
	Type          string          `json:"type"`
	Title         string          `json:"title"`
	Amount        decimal.Decimal `json:"amount"`
	Fee           decimal.Decimal `json:"fee"`
	Remaining     decimal.Decimal `json:"remaining"`
	Description   string          `json:"description,omitempty"`
	TransactionID *string         `json:"transaction_id,omitempty"`
	PublishedAt   time.Time       `json:"published_at"`
	Targets       []DebtTargetDTO `json:"targets"`
}

// CreateDebtRequest opens a debt. Type is "CREDIT" (receivable, the
// default) or "DEBIT" (payable).
type CreateDebtRequest struct {
	Type        string          `json:"type"`
	WalletID    string          `json:"wallet_id"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Fee         decimal.Decimal `json:"fee"`
	Description string          `json:"description"`
	PublishedAt *time.Time      `json:"published_at"`
	Target      TargetRequest   `json:"target"`
}

type UpdateDebtRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	PublishedAt *time.Time `json:"published_at"`
	TargetName  string     `json:"target_name"`
	DueDate     *time.Time `json:"due_date"`
}

type DebtPaymentDTO struct {
	ID        string          `json:"id"`
	TargetID  string          `json:"target_id"`
	WalletID  string          `json:"wallet_id"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note,omitempty"`
	PaidAt    time.Time       `json:"paid_at"`
	CreatedAt time.Time       `json:"created_at"`
}

type RecordPaymentRequest struct {
	WalletID string          `json:"wallet_id"`
	Amount   decimal.Decimal `json:"amount"`
	Note     string          `json:"note"`
	PaidAt   *time.Time      `json:"paid_at"`
}

// =============================================================================
// SUMMARY, SCENARIOS, ERRORS
// =============================================================================

type SummaryDTO struct {
	Wallets      int             `json:"wallets"`
	TotalBalance decimal.Decimal `json:"total_balance"`
	Receivable   decimal.Decimal `json:"receivable"`
	Payable      decimal.Decimal `json:"payable"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toWalletDTO(w ledger.Wallet) WalletDTO {
	return WalletDTO{
		ID:         string(w.ID),
		CategoryID: w.CategoryID,
		Name:       w.Name,
		Balance:    w.Balance,
		CreatedAt:  w.CreatedAt,
		UpdatedAt:  w.UpdatedAt,
	}
}

func toMutationDTO(m ledger.Mutation) MutationDTO {
	return MutationDTO{
		ID:             string(m.ID),
		WalletID:       string(m.WalletID),
		Sequence:       m.Sequence,
		Type:           string(m.Type),
		LastBalance:    m.LastBalance,
		Amount:         m.Amount,
		CurrentBalance: m.CurrentBalance,
		Description:    m.Description,
		OriginKind:     string(m.OriginKind),
		OriginID:       m.OriginID,
		CreatedAt:      m.CreatedAt,
	}
}

func toReconciliationDTO(r ledger.Reconciliation) ReconciliationDTO {
	return ReconciliationDTO{
		WalletID:        string(r.WalletID),
		Balanced:        r.Balanced(),
		StoredBalance:   r.StoredBalance,
		ReplayedBalance: r.ReplayedBalance,
		TotalCredits:    r.TotalCredits,
		TotalDebits:     r.TotalDebits,
		Mutations:       r.Mutations,
	}
}

func toIncomeDTO(in finance.Income) IncomeDTO {
	return IncomeDTO{
		ID:          in.ID,
		WalletID:    string(in.WalletID),
		CategoryID:  in.CategoryID,
		Title:       in.Title,
		Amount:      in.Amount,
		Description: in.Description,
		PublishedAt: in.PublishedAt,
		CreatedAt:   in.CreatedAt,
	}
}

func toTransactionDTO(tx finance.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          tx.ID,
		WalletID:    string(tx.WalletID),
		CategoryID:  tx.CategoryID,
		Title:       tx.Title,
		Amount:      tx.Amount,
		Fee:         tx.Fee,
		Description: tx.Description,
		IsDebt:      tx.IsDebt,
		PublishedAt: tx.PublishedAt,
		CreatedAt:   tx.CreatedAt,
	}
}

func toTransferDTO(t finance.Transfer) TransferDTO {
	return TransferDTO{
		ID:           t.ID,
		FromWalletID: string(t.FromWalletID),
		ToWalletID:   string(t.ToWalletID),
		Amount:       t.Amount,
		Fee:          t.Fee,
		Description:  t.Description,
		PublishedAt:  t.PublishedAt,
		CreatedAt:    t.CreatedAt,
	}
}

func toDebtDTO(d finance.Debt) DebtDTO {
	dto := DebtDTO{
		ID:            d.ID,
		WalletID:      string(d.WalletID),
		Type:          string(d.Type),
		Title:         d.Title,
		Amount:        d.Amount,
		Fee:           d.Fee,
		Remaining:     d.Remaining(),
		Description:   d.Description,
		TransactionID: d.TransactionID,
		PublishedAt:   d.PublishedAt,
		Targets:       make([]DebtTargetDTO, 0, len(d.Targets)),
	}
	for _, t := range d.Targets {
		dto.Targets = append(dto.Targets, DebtTargetDTO{
			ID:              t.ID,
			UserID:          t.UserID,
			Name:            t.Name,
			Amount:          t.Amount,
			PaidAmount:      t.PaidAmount,
			RemainingAmount: t.RemainingAmount,
			Status:          string(t.Status),
			DueDate:         t.DueDate,
		})
	}
	return dto
}

func toPaymentDTO(p finance.DebtPayment) DebtPaymentDTO {
	return DebtPaymentDTO{
		ID:        p.ID,
		TargetID:  p.TargetID,
		WalletID:  string(p.WalletID),
		Amount:    p.Amount,
		Note:      p.Note,
		PaidAt:    p.PaidAt,
		CreatedAt: p.CreatedAt,
	}
}

func toTargetInputs(reqs []TargetRequest) []finance.TargetInput {
	out := make([]finance.TargetInput, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, toTargetInput(r))
	}
	return out
}

func toTargetInput(r TargetRequest) finance.TargetInput {
	return finance.TargetInput{UserID: r.UserID, Name: r.Name, Amount: r.Amount, DueDate: r.DueDate}
}
