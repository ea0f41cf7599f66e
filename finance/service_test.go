package finance_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/wallet-ledger/finance"
	"github.com/warp/wallet-ledger/ledger"
	"github.com/warp/wallet-ledger/store/sqlstore"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const owner = ledger.OwnerID("owner-1")

var fixedNow = time.Date(2025, time.May, 5, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*finance.Service, *sqlstore.Store) {
	store, err := sqlstore.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := finance.NewService(store, finance.WithClock(func() time.Time { return fixedNow }))
	return svc, store
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	if !dec(want).Equal(got) {
		assert.Fail(t, "decimal mismatch: want "+want+", got "+got.String(), msgAndArgs...)
	}
}

func createWallet(t *testing.T, svc *finance.Service, name, balance string) *ledger.Wallet {
	t.Helper()
	w, err := svc.CreateWallet(context.Background(), owner, finance.CreateWalletInput{
		Name:    name,
		Balance: dec(balance),
	})
	require.NoError(t, err)
	return w
}

func balanceOf(t *testing.T, svc *finance.Service, id ledger.WalletID) decimal.Decimal {
	t.Helper()
	w, err := svc.GetWallet(context.Background(), owner, id)
	require.NoError(t, err)
	return w.Balance
}

func mutationsOf(t *testing.T, svc *finance.Service, id ledger.WalletID) []ledger.Mutation {
	t.Helper()
	ms, err := svc.WalletMutations(context.Background(), owner, id)
	require.NoError(t, err)
	return ms
}

// assertLedgerConsistent replays every listed wallet and checks the
// stored balance against its trail, plus per-mutation arithmetic.
func assertLedgerConsistent(t *testing.T, svc *finance.Service, ids ...ledger.WalletID) {
	t.Helper()
	for _, id := range ids {
		r, err := svc.VerifyWallet(context.Background(), owner, id)
		require.NoError(t, err, "wallet %s", id)
		assert.True(t, r.Balanced(), "wallet %s", id)
		assertDecimal(t, r.TotalCredits.Sub(r.TotalDebits).String(), r.StoredBalance, "wallet %s", id)

		for _, m := range mutationsOf(t, svc, id) {
			assert.NoError(t, m.Validate(), "wallet %s mutation #%d", id, m.Sequence)
		}
	}
}

// =============================================================================
// WALLET LIFECYCLE
// =============================================================================

func TestCreateWallet_InitialBalance(t *testing.T) {
	// GIVEN: Nothing
	// WHEN: A wallet is created with balance 50000
	// THEN: Balance is 50000 via one CREDIT mutation from 0

	svc, _ := newTestService(t)
	w := createWallet(t, svc, "Bank", "50000")

	assertDecimal(t, "50000", w.Balance)
	ms := mutationsOf(t, svc, w.ID)
	require.Len(t, ms, 1)
	assert.Equal(t, ledger.Credit, ms[0].Type)
	assertDecimal(t, "0", ms[0].LastBalance)
	assertDecimal(t, "50000", ms[0].CurrentBalance)
	assert.Equal(t, ledger.OriginWallet, ms[0].OriginKind)
	assert.Equal(t, string(w.ID), ms[0].OriginID)
}

func TestCreateWallet_ZeroBalanceWritesNothing(t *testing.T) {
	svc, _ := newTestService(t)
	w := createWallet(t, svc, "Cash", "0")

	assertDecimal(t, "0", w.Balance)
	assert.Empty(t, mutationsOf(t, svc, w.ID))
}

func TestCreateWallet_NegativeBalanceRejected(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateWallet(context.Background(), owner, finance.CreateWalletInput{Name: "x", Balance: dec("-1")})
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	ws, err := svc.ListWallets(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, ws)
}

func TestDeleteWallet_WithBalanceRefused(t *testing.T) {
	// GIVEN: A wallet holding 100
	// WHEN: Deleting it
	// THEN: WalletHasBalanceError; the wallet is still there

	svc, _ := newTestService(t)
	ctx := context.Background()
	w := createWallet(t, svc, "Cash", "100")

	err := svc.DeleteWallet(ctx, owner, w.ID)
	var hb *ledger.WalletHasBalanceError
	require.ErrorAs(t, err, &hb)
	assertDecimal(t, "100", hb.Balance)

	_, err = svc.GetWallet(ctx, owner, w.ID)
	assert.NoError(t, err)
}

func TestDeleteWallet_EmptyIsSoftDeleted(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	w := createWallet(t, svc, "Cash", "0")

	require.NoError(t, svc.DeleteWallet(ctx, owner, w.ID))

	_, err := svc.GetWallet(ctx, owner, w.ID)
	assert.True(t, ledger.IsNotFound(err))

	// History stays readable after deletion.
	_, err = svc.WalletMutations(ctx, owner, w.ID)
	assert.NoError(t, err)

	// And no new money can land on it.
	_, err = svc.CreateIncome(ctx, owner, finance.CreateIncomeInput{WalletID: w.ID, Title: "late", Amount: dec("1")})
	assert.True(t, ledger.IsNotFound(err))
}

func TestUpdateWallet_KeepsBalance(t *testing.T) {
	svc, _ := newTestService(t)
	w := createWallet(t, svc, "Cash", "42")

	updated, err := svc.UpdateWallet(context.Background(), owner, w.ID, finance.UpdateWalletInput{Name: "Pocket", CategoryID: "c9"})
	require.NoError(t, err)
	assert.Equal(t, "Pocket", updated.Name)
	assertDecimal(t, "42", balanceOf(t, svc, w.ID))
	assert.Len(t, mutationsOf(t, svc, w.ID), 1)
}

// =============================================================================
// INCOME
// =============================================================================

func TestCreateIncome_Credits(t *testing.T) {
	svc, _ := newTestService(t)
	w := createWallet(t, svc, "Bank", "50000")

	_, err := svc.CreateIncome(context.Background(), owner, finance.CreateIncomeInput{
		WalletID: w.ID, Title: "Salary", Amount: dec("20000"), PublishedAt: fixedNow,
	})
	require.NoError(t, err)

	assertDecimal(t, "70000", balanceOf(t, svc, w.ID))
	ms := mutationsOf(t, svc, w.ID)
	require.Len(t, ms, 2)
	assert.Equal(t, ledger.Credit, ms[1].Type)
	assertDecimal(t, "50000", ms[1].LastBalance)
	assertDecimal(t, "70000", ms[1].CurrentBalance)
	assert.Equal(t, "Income: Salary", ms[1].Description)
}

func TestIncome_CreateThenDeleteIsNetZero(t *testing.T) {
	// GIVEN: A wallet at 1234.56
	// WHEN: An income of 99.99 is created and deleted
	// THEN: The balance is exactly 1234.56 again, with one CREDIT and one DEBIT of 99.99

	svc, _ := newTestService(t)
	ctx := context.Background()
	w := createWallet(t, svc, "Bank", "1234.56")

	in, err := svc.CreateIncome(ctx, owner, finance.CreateIncomeInput{WalletID: w.ID, Title: "Gift", Amount: dec("99.99")})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteIncome(ctx, owner, in.ID))

	assertDecimal(t, "1234.56", balanceOf(t, svc, w.ID))

	ms, err := svc.OriginMutations(ctx, owner, ledger.OriginIncome, in.ID)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, ledger.Credit, ms[0].Type)
	assert.Equal(t, ledger.Debit, ms[1].Type)
	assertDecimal(t, "99.99", ms[0].Amount)
	assertDecimal(t, "99.99", ms[1].Amount)
	assert.Equal(t, "Income: reversal of Gift", ms[1].Description)

	_, err = svc.GetIncome(ctx, owner, in.ID)
	assert.True(t, ledger.IsNotFound(err))
	assertLedgerConsistent(t, svc, w.ID)
}

func TestUpdateIncome_DescriptiveOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	w := createWallet(t, svc, "Bank", "0")
	in, err := svc.CreateIncome(ctx, owner, finance.CreateIncomeInput{WalletID: w.ID, Title: "Salary", Amount: dec("10")})
	require.NoError(t, err)

	updated, err := svc.UpdateIncome(ctx, owner, in.ID, finance.UpdateIncomeInput{Title: "April salary"})
	require.NoError(t, err)
	assert.Equal(t, "April salary", updated.Title)
	assertDecimal(t, "10", updated.Amount)
	assert.Len(t, mutationsOf(t, svc, w.ID), 1)

	_, err = svc.UpdateIncome(ctx, owner, "missing", finance.UpdateIncomeInput{})
	assert.True(t, ledger.IsNotFound(err))
}

func TestIncome_InvalidAmount(t *testing.T) {
	svc, _ := newTestService(t)
	w := createWallet(t, svc, "Bank", "0")

	for _, amount := range []string{"0", "-5"} {
		_, err := svc.CreateIncome(context.Background(), owner, finance.CreateIncomeInput{WalletID: w.ID, Amount: dec(amount)})
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount, amount)
	}
}

// =============================================================================
// TRANSACTION (expense)
// =============================================================================

func TestCreateTransaction_TwoDebitLegs(t *testing.T) {
	// GIVEN: A wallet at 70000
	// WHEN: An expense of 10000 with fee 1000
	// THEN: 59000, via DEBIT 10000 then DEBIT 1000 whose last balance is 60000

	svc, _ := newTestService(t)
	w := createWallet(t, svc, "Bank", "70000")

	tx, err := svc.CreateTransaction(context.Background(), owner, finance.CreateTransactionInput{
		WalletID: w.ID, Title: "Groceries", Amount: dec("10000"), Fee: dec("1000"),
	})
	require.NoError(t, err)
	assertDecimal(t, "11000", tx.Total())

	assertDecimal(t, "59000", balanceOf(t, svc, w.ID))
	ms := mutationsOf(t, svc, w.ID)
	require.Len(t, ms, 3)
	assert.Equal(t, ledger.Debit, ms[1].Type)
	assertDecimal(t, "10000", ms[1].Amount)
	assert.Equal(t, ledger.Debit, ms[2].Type)
	assertDecimal(t, "1000", ms[2].Amount)
	assertDecimal(t, "60000", ms[2].LastBalance)
	assert.Equal(t, "Expense: Groceries fee", ms[2].Description)
}

func TestCreateTransaction_InsufficientBalance(t *testing.T) {
	svc, _ := newTestService(t)
	w := createWallet(t, svc, "Cash", "100")

	_, err := svc.CreateTransaction(context.Background(), owner, finance.CreateTransactionInput{
		WalletID: w.ID, Title: "TV", Amount: dec("100"), Fee: dec("0.01"),
	})
	var ib *ledger.InsufficientBalanceError
	require.ErrorAs(t, err, &ib)
	assertDecimal(t, "0.01", ib.Shortfall())
	assertDecimal(t, "100", balanceOf(t, svc, w.ID))

	txs, err := svc.ListTransactions(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestCreateTransaction_TargetsRequireSplitBill(t *testing.T) {
	// GIVEN: A wallet at 100
	// WHEN: An expense carries split targets without being marked as a debt
	// THEN: It is rejected and nothing is written

	svc, _ := newTestService(t)
	ctx := context.Background()
	w := createWallet(t, svc, "Cash", "100")

	_, err := svc.CreateTransaction(ctx, owner, finance.CreateTransactionInput{
		WalletID: w.ID, Title: "Dinner", Amount: dec("30"),
		Targets: []finance.TargetInput{{Name: "Ana", Amount: dec("10")}},
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidMutation)
	assert.True(t, ledger.IsClientError(err))

	assertDecimal(t, "100", balanceOf(t, svc, w.ID))
	txs, err := svc.ListTransactions(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, txs)
	debts, err := svc.ListDebts(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, debts)
}

func TestDeleteTransaction_RestoresAmountAndFee(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	w := createWallet(t, svc, "Bank", "500")

	tx, err := svc.CreateTransaction(ctx, owner, finance.CreateTransactionInput{
		WalletID: w.ID, Title: "Taxi", Amount: dec("40"), Fee: dec("2"),
	})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteTransaction(ctx, owner, tx.ID))

	assertDecimal(t, "500", balanceOf(t, svc, w.ID))
	ms, err := svc.OriginMutations(ctx, owner, ledger.OriginTransaction, tx.ID)
	require.NoError(t, err)
	require.Len(t, ms, 3)
	assert.Equal(t, ledger.Credit, ms[2].Type)
	assertDecimal(t, "42", ms[2].Amount)
	assertLedgerConsistent(t, svc, w.ID)
}

func TestSplitBill_DeleteWithPayments(t *testing.T) {
	// GIVEN: A split-bill expense of 300 with targets Bob 100 and Carol 100,
	//        and Bob has paid 60 into a second wallet
	// WHEN: The expense is deleted
	// THEN: Bob's payment is reversed from the second wallet, the debt and
	//       targets are gone, and the first wallet is back to its start

	svc, _ := newTestService(t)
	ctx := context.Background()
	bank := createWallet(t, svc, "Bank", "1000")
	cash := createWallet(t, svc, "Cash", "0")

	tx, err := svc.CreateTransaction(ctx, owner, finance.CreateTransactionInput{
		WalletID: bank.ID, Title: "Dinner", Amount: dec("300"), Fee: decimal.Zero,
		IsDebt: true,
		Targets: []finance.TargetInput{
			{Name: "Bob", Amount: dec("100")},
			{Name: "Carol", Amount: dec("100")},
		},
	})
	require.NoError(t, err)
	assertDecimal(t, "700", balanceOf(t, svc, bank.ID))

	debt, err := svc.TransactionDebt(ctx, owner, tx.ID)
	require.NoError(t, err)
	require.Len(t, debt.Targets, 2)
	assertDecimal(t, "200", debt.Remaining())
	assert.Empty(t, mustOrigin(t, svc, ledger.OriginDebt, debt.ID), "split bill writes no debt leg")

	var bob finance.DebtTarget
	for _, tg := range debt.Targets {
		if tg.Name == "Bob" {
			bob = tg
		}
	}
	payment, err := svc.RecordDebtPayment(ctx, owner, finance.RecordPaymentInput{
		TargetID: bob.ID, WalletID: cash.ID, Amount: dec("60"),
	})
	require.NoError(t, err)
	assertDecimal(t, "60", balanceOf(t, svc, cash.ID))

	require.NoError(t, svc.DeleteTransaction(ctx, owner, tx.ID))

	assertDecimal(t, "1000", balanceOf(t, svc, bank.ID))
	assertDecimal(t, "0", balanceOf(t, svc, cash.ID))

	reversal := mustOrigin(t, svc, ledger.OriginDebtPayment, payment.ID)
	require.Len(t, reversal, 2)
	assert.Equal(t, ledger.Debit, reversal[1].Type)

	_, err = svc.GetDebt(ctx, owner, debt.ID)
	assert.True(t, ledger.IsNotFound(err))
	_, err = svc.DebtPayments(ctx, owner, bob.ID)
	assert.True(t, ledger.IsNotFound(err))
	assertLedgerConsistent(t, svc, bank.ID, cash.ID)
}

func TestSplitBill_TargetSumsAreNotChecked(t *testing.T) {
	svc, _ := newTestService(t)
	w := createWallet(t, svc, "Bank", "100")

	tx, err := svc.CreateTransaction(context.Background(), owner, finance.CreateTransactionInput{
		WalletID: w.ID, Title: "Pizza", Amount: dec("30"), IsDebt: true,
		Targets: []finance.TargetInput{{Name: "Dan", Amount: dec("50")}},
	})
	require.NoError(t, err)

	debt, err := svc.TransactionDebt(context.Background(), owner, tx.ID)
	require.NoError(t, err)
	assertDecimal(t, "50", debt.Remaining())
}

func mustOrigin(t *testing.T, svc *finance.Service, kind ledger.OriginKind, id string) []ledger.Mutation {
	t.Helper()
	ms, err := svc.OriginMutations(context.Background(), owner, kind, id)
	require.NoError(t, err)
	return ms
}

// =============================================================================
// TRANSFER
// =============================================================================

func TestCreateTransfer_FeeIsNotCredited(t *testing.T) {
	// GIVEN: Wallet A at 59000 and wallet B at 0
	// WHEN: Transferring 5000 with fee 500
	// THEN: A is 53500 after two debits, B is 5000 after one credit

	svc, _ := newTestService(t)
	a := createWallet(t, svc, "A", "59000")
	b := createWallet(t, svc, "B", "0")

	tr, err := svc.CreateTransfer(context.Background(), owner, finance.CreateTransferInput{
		FromWalletID: a.ID, ToWalletID: b.ID, Amount: dec("5000"), Fee: dec("500"),
	})
	require.NoError(t, err)

	assertDecimal(t, "53500", balanceOf(t, svc, a.ID))
	assertDecimal(t, "5000", balanceOf(t, svc, b.ID))

	legs := mustOrigin(t, svc, ledger.OriginTransfer, tr.ID)
	require.Len(t, legs, 3)
	var debits, credits int
	for _, m := range legs {
		if m.Type == ledger.Debit {
			debits++
			assert.Equal(t, a.ID, m.WalletID)
		} else {
			credits++
			assert.Equal(t, b.ID, m.WalletID)
			assertDecimal(t, "5000", m.Amount)
		}
	}
	assert.Equal(t, 2, debits)
	assert.Equal(t, 1, credits)
	assertLedgerConsistent(t, svc, a.ID, b.ID)
}

func TestCreateTransfer_Rejections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := createWallet(t, svc, "A", "100")
	b := createWallet(t, svc, "B", "0")
	gone := createWallet(t, svc, "Gone", "0")
	require.NoError(t, svc.DeleteWallet(ctx, owner, gone.ID))

	tests := []struct {
		name string
		in   finance.CreateTransferInput
		want error
	}{
		{"same wallet", finance.CreateTransferInput{FromWalletID: a.ID, ToWalletID: a.ID, Amount: dec("1")}, ledger.ErrInvalidTransfer},
		{"insufficient", finance.CreateTransferInput{FromWalletID: a.ID, ToWalletID: b.ID, Amount: dec("100"), Fee: dec("1")}, ledger.ErrInsufficientBalance},
		{"zero amount", finance.CreateTransferInput{FromWalletID: a.ID, ToWalletID: b.ID, Amount: dec("0")}, ledger.ErrInvalidAmount},
		{"negative fee", finance.CreateTransferInput{FromWalletID: a.ID, ToWalletID: b.ID, Amount: dec("1"), Fee: dec("-1")}, ledger.ErrInvalidAmount},
		{"deleted target", finance.CreateTransferInput{FromWalletID: a.ID, ToWalletID: gone.ID, Amount: dec("1")}, ledger.ErrNotFound},
		{"unknown source", finance.CreateTransferInput{FromWalletID: "nope", ToWalletID: b.ID, Amount: dec("1")}, ledger.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateTransfer(ctx, owner, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assertDecimal(t, "100", balanceOf(t, svc, a.ID))
	assertDecimal(t, "0", balanceOf(t, svc, b.ID))
	transfers, err := svc.ListTransfers(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, transfers)
}

// =============================================================================
// DEBTS
// =============================================================================

func TestReceivableDebt_Lifecycle(t *testing.T) {
	// GIVEN: A wallet at 1000
	// WHEN: Lending 200 with fee 10, collecting it in two payments, then deleting the debt
	// THEN: Balances follow each leg and the wallet ends where it started

	svc, _ := newTestService(t)
	ctx := context.Background()
	w := createWallet(t, svc, "Bank", "1000")

	debt, err := svc.CreateDebtReceivable(ctx, owner, finance.CreateDebtInput{
		WalletID: w.ID, Title: "Loan to Bob", Amount: dec("200"), Fee: dec("10"),
		Target: finance.TargetInput{Name: "Bob"},
	})
	require.NoError(t, err)
	assert.Equal(t, finance.DebtReceivable, debt.Type)
	require.Len(t, debt.Targets, 1)
	target := debt.Targets[0]
	assertDecimal(t, "210", target.Amount)
	assertDecimal(t, "790", balanceOf(t, svc, w.ID))
	assert.Len(t, mustOrigin(t, svc, ledger.OriginDebt, debt.ID), 2)

	for _, amount := range []string{"110", "100"} {
		_, err := svc.RecordDebtPayment(ctx, owner, finance.RecordPaymentInput{
			TargetID: target.ID, WalletID: w.ID, Amount: dec(amount), PaidAt: fixedNow,
		})
		require.NoError(t, err)
	}
	assertDecimal(t, "1000", balanceOf(t, svc, w.ID))

	got, err := svc.GetDebt(ctx, owner, debt.ID)
	require.NoError(t, err)
	tg := got.Targets[0]
	assert.Equal(t, finance.TargetPaid, tg.Status)
	assertDecimal(t, "0", tg.RemainingAmount)
	assertDecimal(t, "210", tg.PaidAmount)
	assertDecimal(t, tg.Amount.String(), tg.PaidAmount.Add(tg.RemainingAmount))

	payments, err := svc.DebtPayments(ctx, owner, tg.ID)
	require.NoError(t, err)
	assertDecimal(t, tg.PaidAmount.String(), finance.PaidTotal(payments))

	_, err = svc.RecordDebtPayment(ctx, owner, finance.RecordPaymentInput{TargetID: tg.ID, WalletID: w.ID, Amount: dec("1")})
	assert.ErrorIs(t, err, ledger.ErrAmountExceedsRemaining)

	require.NoError(t, svc.DeleteDebtReceivable(ctx, owner, debt.ID))
	assertDecimal(t, "1000", balanceOf(t, svc, w.ID))
	_, err = svc.GetDebt(ctx, owner, debt.ID)
	assert.True(t, ledger.IsNotFound(err))
	assertLedgerConsistent(t, svc, w.ID)
}

func TestRecordDebtPayment_ExceedsRemaining(t *testing.T) {
	// GIVEN: A target with 3000 remaining
	// WHEN: Paying 5000
	// THEN: AmountExceedsRemainingError, no mutation, target unchanged

	svc, _ := newTestService(t)
	ctx := context.Background()
	w := createWallet(t, svc, "Bank", "10000")
	debt, err := svc.CreateDebtReceivable(ctx, owner, finance.CreateDebtInput{
		WalletID: w.ID, Title: "Loan", Amount: dec("3000"), Target: finance.TargetInput{Name: "Eve"},
	})
	require.NoError(t, err)
	before := len(mutationsOf(t, svc, w.ID))

	_, err = svc.RecordDebtPayment(ctx, owner, finance.RecordPaymentInput{
		TargetID: debt.Targets[0].ID, WalletID: w.ID, Amount: dec("5000"),
	})
	var ex *ledger.AmountExceedsRemainingError
	require.ErrorAs(t, err, &ex)
	assertDecimal(t, "3000", ex.Remaining)

	assert.Len(t, mutationsOf(t, svc, w.ID), before)
	got, err := svc.GetDebt(ctx, owner, debt.ID)
	require.NoError(t, err)
	assertDecimal(t, "3000", got.Targets[0].RemainingAmount)
	assert.Equal(t, finance.TargetOpen, got.Targets[0].Status)
}

func TestRecordDebtPayment_UnknownTarget(t *testing.T) {
	svc, _ := newTestService(t)
	w := createWallet(t, svc, "Bank", "0")

	_, err := svc.RecordDebtPayment(context.Background(), owner, finance.RecordPaymentInput{
		TargetID: "nope", WalletID: w.ID, Amount: dec("1"),
	})
	assert.True(t, ledger.IsNotFound(err))
}

func TestPayableDebt_Lifecycle(t *testing.T) {
	// GIVEN: A wallet at 100
	// WHEN: Borrowing 500 with a 20 fee, repaying 100, then deleting the debt
	// THEN: Only the principal lands; repayment debits; delete restores 100

	svc, _ := newTestService(t)
	ctx := context.Background()
	w := createWallet(t, svc, "Bank", "100")

	debt, err := svc.CreateDebtPayable(ctx, owner, finance.CreateDebtInput{
		WalletID: w.ID, Title: "Loan from Ann", Amount: dec("500"), Fee: dec("20"),
		Target: finance.TargetInput{Name: "Ann"},
	})
	require.NoError(t, err)
	assertDecimal(t, "600", balanceOf(t, svc, w.ID))
	assertDecimal(t, "520", debt.Targets[0].Amount)

	sum, err := svc.Summary(ctx, owner)
	require.NoError(t, err)
	assertDecimal(t, "520", sum.Payable)
	assertDecimal(t, "0", sum.Receivable)
	assertDecimal(t, "600", sum.TotalBalance)

	_, err = svc.RecordDebtPayment(ctx, owner, finance.RecordPaymentInput{
		TargetID: debt.Targets[0].ID, WalletID: w.ID, Amount: dec("100"),
	})
	require.NoError(t, err)
	assertDecimal(t, "500", balanceOf(t, svc, w.ID))

	require.NoError(t, svc.DeleteDebtReceivable(ctx, owner, debt.ID))
	assertDecimal(t, "100", balanceOf(t, svc, w.ID))
	assertLedgerConsistent(t, svc, w.ID)
}

func TestUpdateDebtReceivable_Descriptive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	w := createWallet(t, svc, "Bank", "100")
	debt, err := svc.CreateDebtReceivable(ctx, owner, finance.CreateDebtInput{
		WalletID: w.ID, Title: "Loan", Amount: dec("50"), Target: finance.TargetInput{Name: "Bob"},
	})
	require.NoError(t, err)
	before := len(mutationsOf(t, svc, w.ID))

	due := fixedNow.AddDate(0, 2, 0)
	updated, err := svc.UpdateDebtReceivable(ctx, owner, debt.ID, finance.UpdateDebtInput{
		Title: "Loan (car)", TargetName: "Robert", DueDate: &due,
	})
	require.NoError(t, err)
	assert.Equal(t, "Loan (car)", updated.Title)
	assert.Equal(t, "Robert", updated.Targets[0].Name)

	got, err := svc.GetDebt(ctx, owner, debt.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Targets[0].DueDate)
	assert.True(t, got.Targets[0].DueDate.Equal(due))
	assertDecimal(t, "50", got.Targets[0].RemainingAmount)
	assert.Len(t, mutationsOf(t, svc, w.ID), before)
}

func TestCreateDebt_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	w := createWallet(t, svc, "Bank", "100")
	ctx := context.Background()

	_, err := svc.CreateDebt(ctx, owner, finance.CreateDebtInput{Type: "SIDEWAYS", WalletID: w.ID, Amount: dec("1")})
	assert.ErrorIs(t, err, ledger.ErrInvalidMutation)

	_, err = svc.CreateDebtReceivable(ctx, owner, finance.CreateDebtInput{WalletID: w.ID, Amount: dec("0")})
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = svc.CreateDebtReceivable(ctx, owner, finance.CreateDebtInput{WalletID: w.ID, Amount: dec("1"), Fee: dec("-1")})
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = svc.CreateDebtReceivable(ctx, owner, finance.CreateDebtInput{WalletID: "nope", Amount: dec("1")})
	assert.True(t, ledger.IsNotFound(err))

	debts, err := svc.ListDebts(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, debts)
}

// =============================================================================
// RAW MUTATIONS / OWNERSHIP
// =============================================================================

func TestRecordMutation(t *testing.T) {
	svc, _ := newTestService(t)
	w := createWallet(t, svc, "Bank", "10")

	m, err := svc.RecordMutation(context.Background(), owner, finance.RecordMutationInput{
		OriginKind: ledger.OriginWallet, OriginID: string(w.ID), OriginName: "correction",
		WalletID: w.ID, Amount: dec("2.5"), Direction: ledger.Debit,
	})
	require.NoError(t, err)
	assertDecimal(t, "7.5", m.CurrentBalance)
	assertDecimal(t, "7.5", balanceOf(t, svc, w.ID))

	_, err = svc.OriginMutations(context.Background(), owner, "gift", "x")
	assert.ErrorIs(t, err, ledger.ErrInvalidMutation)
}

func TestOwnership_IsEnforced(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	w := createWallet(t, svc, "Bank", "100")

	_, err := svc.GetWallet(ctx, "intruder", w.ID)
	assert.True(t, ledger.IsNotFound(err))

	_, err = svc.CreateTransaction(ctx, "intruder", finance.CreateTransactionInput{
		WalletID: w.ID, Title: "steal", Amount: dec("100"),
	})
	assert.True(t, ledger.IsNotFound(err))
	assertDecimal(t, "100", balanceOf(t, svc, w.ID))
}

// =============================================================================
// ATOMICITY
// =============================================================================

// failingStore runs real transactions but refuses every mutation write,
// so each operation fails after its domain record is inserted.
type failingStore struct {
	*sqlstore.Store
}

var errDiskFull = errors.New("disk full")

func (f failingStore) WithTx(ctx context.Context, fn func(finance.Store) error) error {
	return f.Store.WithTx(ctx, func(st finance.Store) error {
		return fn(failingTx{st})
	})
}

type failingTx struct {
	finance.Store
}

func (failingTx) AppendMutation(context.Context, *ledger.Mutation) error {
	return errDiskFull
}

func TestAtomicity_FailedMutationRollsBackEverything(t *testing.T) {
	// GIVEN: A wallet at 1000 and a store that fails on mutation writes
	// WHEN: Each money-moving operation is attempted
	// THEN: Each fails with PersistenceError, and no record, mutation or
	//       balance change survives

	good, store := newTestService(t)
	ctx := context.Background()
	a := createWallet(t, good, "A", "1000")
	b := createWallet(t, good, "B", "0")

	bad := finance.NewService(failingStore{store})

	ops := map[string]func() error{
		"income": func() error {
			_, err := bad.CreateIncome(ctx, owner, finance.CreateIncomeInput{WalletID: a.ID, Title: "x", Amount: dec("5")})
			return err
		},
		"transaction": func() error {
			_, err := bad.CreateTransaction(ctx, owner, finance.CreateTransactionInput{
				WalletID: a.ID, Title: "x", Amount: dec("5"), IsDebt: true,
				Targets: []finance.TargetInput{{Name: "Bob", Amount: dec("5")}},
			})
			return err
		},
		"transfer": func() error {
			_, err := bad.CreateTransfer(ctx, owner, finance.CreateTransferInput{FromWalletID: a.ID, ToWalletID: b.ID, Amount: dec("5")})
			return err
		},
		"debt": func() error {
			_, err := bad.CreateDebtReceivable(ctx, owner, finance.CreateDebtInput{WalletID: a.ID, Title: "x", Amount: dec("5")})
			return err
		},
		"wallet": func() error {
			_, err := bad.CreateWallet(ctx, owner, finance.CreateWalletInput{Name: "C", Balance: dec("5")})
			return err
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()
			assert.ErrorIs(t, err, ledger.ErrPersistence)
			assert.ErrorIs(t, err, errDiskFull)
		})
	}

	assertDecimal(t, "1000", balanceOf(t, good, a.ID))
	assertDecimal(t, "0", balanceOf(t, good, b.ID))
	assert.Len(t, mutationsOf(t, good, a.ID), 1)

	incomes, err := good.ListIncomes(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, incomes)
	txs, err := good.ListTransactions(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, txs)
	debts, err := good.ListDebts(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, debts)
	wallets, err := good.ListWallets(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, wallets, 2)
}

func TestAtomicity_FailedDeleteKeepsRecord(t *testing.T) {
	good, store := newTestService(t)
	ctx := context.Background()
	w := createWallet(t, good, "A", "0")
	in, err := good.CreateIncome(ctx, owner, finance.CreateIncomeInput{WalletID: w.ID, Title: "x", Amount: dec("5")})
	require.NoError(t, err)

	bad := finance.NewService(failingStore{store})
	assert.ErrorIs(t, bad.DeleteIncome(ctx, owner, in.ID), ledger.ErrPersistence)

	_, err = good.GetIncome(ctx, owner, in.ID)
	assert.NoError(t, err)
	assertDecimal(t, "5", balanceOf(t, good, w.ID))
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestConcurrentWrites_SameWallet(t *testing.T) {
	// GIVEN: One wallet
	// WHEN: 25 incomes and 25 expenses run concurrently against it
	// THEN: No update is lost and the trail is a clean chain

	svc, _ := newTestService(t)
	ctx := context.Background()
	w := createWallet(t, svc, "Bank", "1000")

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 25; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.CreateIncome(ctx, owner, finance.CreateIncomeInput{WalletID: w.ID, Title: "in", Amount: dec("3")})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := svc.CreateTransaction(ctx, owner, finance.CreateTransactionInput{WalletID: w.ID, Title: "out", Amount: dec("1")})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assertDecimal(t, "1050", balanceOf(t, svc, w.ID))
	ms := mutationsOf(t, svc, w.ID)
	require.Len(t, ms, 51)
	for i, m := range ms {
		assert.Equal(t, int64(i+1), m.Sequence)
	}
	assertLedgerConsistent(t, svc, w.ID)
}

func TestConcurrentPayments_SameTarget(t *testing.T) {
	// GIVEN: A receivable of 100 owed by one target
	// WHEN: Ten payments of 30 race against it
	// THEN: Exactly three land, the rest exceed the remaining amount,
	//       and the payments add up to the target's paid amount

	svc, _ := newTestService(t)
	ctx := context.Background()
	w := createWallet(t, svc, "Bank", "1000")
	debt, err := svc.CreateDebtReceivable(ctx, owner, finance.CreateDebtInput{
		WalletID: w.ID, Title: "Loan", Amount: dec("100"), Target: finance.TargetInput{Name: "Bob"},
	})
	require.NoError(t, err)
	targetID := debt.Targets[0].ID

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordDebtPayment(ctx, owner, finance.RecordPaymentInput{
				TargetID: targetID, WalletID: w.ID, Amount: dec("30"), PaidAt: fixedNow,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	paid := 0
	for err := range errs {
		if err == nil {
			paid++
			continue
		}
		require.ErrorIs(t, err, ledger.ErrAmountExceedsRemaining)
	}
	assert.Equal(t, 3, paid)

	got, err := svc.GetDebt(ctx, owner, debt.ID)
	require.NoError(t, err)
	tg := got.Targets[0]
	assertDecimal(t, "90", tg.PaidAmount)
	assertDecimal(t, "10", tg.RemainingAmount)

	payments, err := svc.DebtPayments(ctx, owner, targetID)
	require.NoError(t, err)
	require.Len(t, payments, 3)
	assertDecimal(t, tg.PaidAmount.String(), finance.PaidTotal(payments))
	assertDecimal(t, "990", balanceOf(t, svc, w.ID))
	assertLedgerConsistent(t, svc, w.ID)
}

// lockCountingStore counts wallet locks taken inside transactions.
type lockCountingStore struct {
	*sqlstore.Store
	locks *atomic.Int32
}

func (s lockCountingStore) WithTx(ctx context.Context, fn func(finance.Store) error) error {
	return s.Store.WithTx(ctx, func(st finance.Store) error {
		return fn(lockCountingTx{Store: st, locks: s.locks})
	})
}

type lockCountingTx struct {
	finance.Store
	locks *atomic.Int32
}

func (s lockCountingTx) LockWallet(ctx context.Context, o ledger.OwnerID, id ledger.WalletID) (*ledger.Wallet, error) {
	s.locks.Add(1)
	return s.Store.LockWallet(ctx, o, id)
}

func TestVerifyWallet_ReadsUnderWalletLock(t *testing.T) {
	// GIVEN: A wallet with a short trail
	// WHEN: It is verified through a store that counts locks
	// THEN: The balance was read under the wallet lock inside a transaction

	svc, store := newTestService(t)
	w := createWallet(t, svc, "Bank", "40")

	var locks atomic.Int32
	counting := finance.NewService(lockCountingStore{Store: store, locks: &locks})

	rec, err := counting.VerifyWallet(context.Background(), owner, w.ID)
	require.NoError(t, err)
	assert.True(t, rec.Balanced())
	assert.Equal(t, int32(1), locks.Load())
}

func TestVerifyWallet_DuringConcurrentWrites(t *testing.T) {
	// GIVEN: One wallet
	// WHEN: Verification runs while incomes are being recorded
	// THEN: No verification reports drift

	svc, _ := newTestService(t)
	ctx := context.Background()
	w := createWallet(t, svc, "Bank", "0")

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.CreateIncome(ctx, owner, finance.CreateIncomeInput{WalletID: w.ID, Title: "in", Amount: dec("1")})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := svc.VerifyWallet(ctx, owner, w.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assertDecimal(t, "20", balanceOf(t, svc, w.ID))
}
