/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the ledger with realistic
	data for demos. Every loader goes through the finance service, so the
	resulting mutation trails are exactly what real requests would write.

AVAILABLE SCENARIOS:

	basic-flow:  Opening balance, income, expense with fee, transfer with fee
	split-bill:  Dinner paid for three, two friends owe their share
	debts:       Money lent and money borrowed, each partly repaid

HOW SCENARIOS WORK:
 1. Create wallets for the calling owner
 2. Record incomes, expenses, transfers and debts
 3. Return the owner's summary

USAGE VIA API:

	POST /api/scenarios/load
	X-Owner-ID: demo
	{"scenario_id": "basic-flow"}

NOTE:

	Scenarios add data; they never reset the database. Loading the same
	scenario twice creates a second set of wallets.

SEE ALSO:
  - handlers.go: Summary handler
  - finance/: Operations used by the loaders
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/wallet-ledger/finance"
	"github.com/warp/wallet-ledger/ledger"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "basic-flow",
		Name:        "Basic Flow",
		Description: "Wallet opened with 50000, income of 20000, expense of 10000 plus 1000 fee, transfer of 5000 plus 500 fee",
	},
	{
		ID:          "split-bill",
		Name:        "Split Bill",
		Description: "Dinner of 30000 paid from one wallet, two friends owe 10000 each, one has paid",
	},
	{
		ID:          "debts",
		Name:        "Lending and Borrowing",
		Description: "5000 lent to a friend and 20000 borrowed from family, both partly repaid",
	},
}

type scenarioLoader func(ctx context.Context, svc *finance.Service, owner ledger.OwnerID, at time.Time) error

var scenarioLoaders = map[string]scenarioLoader{
	"basic-flow": loadBasicFlowScenario,
	"split-bill": loadSplitBillScenario,
	"debts":      loadDebtsScenario,
}

// =============================================================================
// HANDLERS
// =============================================================================

func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decode(w, r, &req) {
		return
	}

	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario: "+req.ScenarioID, nil)
		return
	}

	owner := ownerFrom(r)
	if err := load(r.Context(), h.Service, owner, h.now()); err != nil {
		writeServiceError(w, r, err)
		return
	}

	s, err := h.Service.Summary(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryDTO{
		Wallets:      s.Wallets,
		TotalBalance: s.TotalBalance,
		Receivable:   s.Receivable,
		Payable:      s.Payable,
	})
}

// =============================================================================
// LOADERS
// =============================================================================

func amount(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// loadBasicFlowScenario ends with Main at 53500 and Savings at 5000.
func loadBasicFlowScenario(ctx context.Context, svc *finance.Service, owner ledger.OwnerID, at time.Time) error {
	primary, err := svc.CreateWallet(ctx, owner, finance.CreateWalletInput{Name: "Main", Balance: amount(50000)})
	if err != nil {
		return err
	}
	savings, err := svc.CreateWallet(ctx, owner, finance.CreateWalletInput{Name: "Savings"})
	if err != nil {
		return err
	}

	if _, err := svc.CreateIncome(ctx, owner, finance.CreateIncomeInput{
		WalletID:    primary.ID,
		Title:       "Salary",
		Amount:      amount(20000),
		PublishedAt: at,
	}); err != nil {
		return err
	}

	if _, err := svc.CreateTransaction(ctx, owner, finance.CreateTransactionInput{
		WalletID:    primary.ID,
		Title:       "Groceries",
		Amount:      amount(10000),
		Fee:         amount(1000),
		PublishedAt: at,
	}); err != nil {
		return err
	}

	_, err = svc.CreateTransfer(ctx, owner, finance.CreateTransferInput{
		FromWalletID: primary.ID,
		ToWalletID:   savings.ID,
		Amount:       amount(5000),
		Fee:          amount(500),
		Description:  "Monthly saving",
		PublishedAt:  at,
	})
	return err
}

// loadSplitBillScenario leaves Ben's 10000 outstanding.
func loadSplitBillScenario(ctx context.Context, svc *finance.Service, owner ledger.OwnerID, at time.Time) error {
	wallet, err := svc.CreateWallet(ctx, owner, finance.CreateWalletInput{Name: "Card", Balance: amount(100000)})
	if err != nil {
		return err
	}

	tx, err := svc.CreateTransaction(ctx, owner, finance.CreateTransactionInput{
		WalletID:    wallet.ID,
		Title:       "Dinner",
		Amount:      amount(30000),
		PublishedAt: at,
		IsDebt:      true,
		Targets: []finance.TargetInput{
			{Name: "Ana", Amount: amount(10000)},
			{Name: "Ben", Amount: amount(10000)},
		},
	})
	if err != nil {
		return err
	}

	debt, err := svc.TransactionDebt(ctx, owner, tx.ID)
	if err != nil {
		return err
	}
	for _, t := range debt.Targets {
		if t.Name != "Ana" {
			continue
		}
		if _, err := svc.RecordDebtPayment(ctx, owner, finance.RecordPaymentInput{
			TargetID: t.ID,
			WalletID: wallet.ID,
			Amount:   t.RemainingAmount,
			Note:     "Paid back in cash",
			PaidAt:   at,
		}); err != nil {
			return err
		}
	}
	return nil
}

// loadDebtsScenario opens one receivable and one payable and pays half of each.
func loadDebtsScenario(ctx context.Context, svc *finance.Service, owner ledger.OwnerID, at time.Time) error {
	wallet, err := svc.CreateWallet(ctx, owner, finance.CreateWalletInput{Name: "Everyday", Balance: amount(10000)})
	if err != nil {
		return err
	}

	lent, err := svc.CreateDebtReceivable(ctx, owner, finance.CreateDebtInput{
		WalletID:    wallet.ID,
		Title:       "Loan to Carol",
		Amount:      amount(5000),
		PublishedAt: at,
		Target:      finance.TargetInput{Name: "Carol"},
	})
	if err != nil {
		return err
	}

	borrowed, err := svc.CreateDebtPayable(ctx, owner, finance.CreateDebtInput{
		WalletID:    wallet.ID,
		Title:       "Loan from family",
		Amount:      amount(20000),
		PublishedAt: at,
		Target:      finance.TargetInput{Name: "Family"},
	})
	if err != nil {
		return err
	}

	for _, d := range []*finance.Debt{lent, borrowed} {
		if len(d.Targets) == 0 {
			continue
		}
		t := d.Targets[0]
		if _, err := svc.RecordDebtPayment(ctx, owner, finance.RecordPaymentInput{
			TargetID: t.ID,
			WalletID: wallet.ID,
			Amount:   t.RemainingAmount.Div(amount(2)),
			PaidAt:   at,
		}); err != nil {
			return err
		}
	}
	return nil
}
