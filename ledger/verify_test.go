package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/wallet-ledger/ledger"
)

func chain(amounts ...string) []ledger.Mutation {
	var ms []ledger.Mutation
	running := dec("0")
	for i, a := range amounts {
		amount := dec(a)
		dir := ledger.Credit
		if amount.IsNegative() {
			dir = ledger.Debit
			amount = amount.Neg()
		}
		next := dir.Apply(running, amount)
		ms = append(ms, ledger.Mutation{
			Sequence:       int64(i + 1),
			Type:           dir,
			LastBalance:    running,
			Amount:         amount,
			CurrentBalance: next,
			OriginKind:     ledger.OriginIncome,
		})
		running = next
	}
	return ms
}

func TestReplay_SumsTheChain(t *testing.T) {
	r, err := ledger.Replay("w1", chain("100", "-30", "12.5"))
	require.NoError(t, err)
	assert.Equal(t, 3, r.Mutations)
	assert.True(t, r.ReplayedBalance.Equal(dec("82.5")))
	assert.True(t, r.TotalCredits.Equal(dec("112.5")))
	assert.True(t, r.TotalDebits.Equal(dec("30")))
}

func TestReplay_EmptyIsZero(t *testing.T) {
	r, err := ledger.Replay("w1", nil)
	require.NoError(t, err)
	assert.True(t, r.ReplayedBalance.IsZero())
}

func TestReplay_BrokenChain(t *testing.T) {
	// GIVEN: A trail where mutation #2 does not start at #1's end
	// WHEN: Replaying
	// THEN: DriftError names sequence 2

	ms := chain("100", "-30")
	ms[1].LastBalance = dec("90")
	ms[1].CurrentBalance = dec("60")

	_, err := ledger.Replay("w1", ms)
	var drift *ledger.DriftError
	require.ErrorAs(t, err, &drift)
	assert.Equal(t, int64(2), drift.Sequence)
	assert.True(t, drift.Expected.Equal(dec("100")))
	assert.ErrorIs(t, err, ledger.ErrDrift)
}

func TestReplay_BadArithmetic(t *testing.T) {
	ms := chain("100")
	ms[0].CurrentBalance = dec("101")

	_, err := ledger.Replay("w1", ms)
	var drift *ledger.DriftError
	require.ErrorAs(t, err, &drift)
	assert.Equal(t, int64(1), drift.Sequence)
}

func TestVerifyWallet_Balanced(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	newWallet(t, store, "w1")
	svc := ledger.NewMutationService()

	for _, req := range []ledger.MutationRequest{
		request("w1", ledger.Credit, "250"),
		request("w1", ledger.Debit, "75.25"),
		request("w1", ledger.Credit, "0.25"),
	} {
		_, err := svc.Record(ctx, store, req)
		require.NoError(t, err)
	}

	r, err := ledger.VerifyWallet(ctx, store, owner, "w1")
	require.NoError(t, err)
	assert.True(t, r.Balanced())
	assert.True(t, r.StoredBalance.Equal(dec("175")))
	assert.Equal(t, 3, r.Mutations)
}

// tamperedStore reports a wallet balance the trail does not explain.
type tamperedStore struct {
	ledger.Store
}

func (s tamperedStore) LockWallet(ctx context.Context, o ledger.OwnerID, id ledger.WalletID) (*ledger.Wallet, error) {
	w, err := s.Store.LockWallet(ctx, o, id)
	if w != nil {
		w.Balance = w.Balance.Add(dec("1"))
	}
	return w, err
}

func TestVerifyWallet_StoredBalanceDrift(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	newWallet(t, store, "w1")
	_, err := ledger.NewMutationService().Record(ctx, store, request("w1", ledger.Credit, "10"))
	require.NoError(t, err)

	r, err := ledger.VerifyWallet(ctx, tamperedStore{store}, owner, "w1")
	var drift *ledger.DriftError
	require.ErrorAs(t, err, &drift)
	assert.False(t, r.Balanced())
	assert.True(t, drift.Expected.Equal(dec("10")))
	assert.True(t, drift.Actual.Equal(dec("11")))
}

func TestVerifyWallet_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := ledger.VerifyWallet(context.Background(), store, owner, "missing")
	assert.True(t, ledger.IsNotFound(err))
}

// =============================================================================
// ERROR CLASSIFICATION
// =============================================================================

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err    error
		kind   string
		client bool
	}{
		{&ledger.NotFoundError{Kind: "wallet", ID: "w"}, "not_found", false},
		{&ledger.InvalidAmountError{Field: "amount", Amount: dec("0")}, "invalid_amount", true},
		{&ledger.InsufficientBalanceError{WalletID: "w", Available: dec("1"), Requested: dec("3")}, "insufficient_balance", true},
		{&ledger.AmountExceedsRemainingError{TargetID: "t", Remaining: dec("1"), Requested: dec("2")}, "amount_exceeds_remaining", true},
		{&ledger.WalletHasBalanceError{WalletID: "w", Balance: dec("1")}, "wallet_has_balance", false},
		{fmt.Errorf("%w: same wallet", ledger.ErrInvalidTransfer), "invalid_transfer", true},
		{ledger.Persistence("insert", errors.New("disk full")), "persistence", false},
		{errors.New("plain"), "", false},
	}
	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.kind, ledger.Kind(tc.err))
			assert.Equal(t, tc.client, ledger.IsClientError(tc.err))
		})
	}
}

func TestPersistence_KeepsLedgerErrors(t *testing.T) {
	nf := &ledger.NotFoundError{Kind: "income", ID: "i1"}
	assert.Same(t, nf, ledger.Persistence("op", nf).(*ledger.NotFoundError))
	assert.Nil(t, ledger.Persistence("op", nil))

	cause := errors.New("locked")
	err := ledger.Persistence("commit", cause)
	assert.ErrorIs(t, err, ledger.ErrPersistence)
	assert.ErrorIs(t, err, cause)
}

func TestInsufficientBalance_Shortfall(t *testing.T) {
	e := &ledger.InsufficientBalanceError{WalletID: "w", Available: dec("40"), Requested: dec("100")}
	assert.True(t, e.Shortfall().Equal(dec("60")))
}
