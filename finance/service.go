package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/wallet-ledger/ledger"
	"github.com/warp/wallet-ledger/metrics"
)

// Service is the money-movement core. API handlers and the CLI both call
// it; neither touches balances on their own.
type Service struct {
	store     TxStore
	mutations *ledger.MutationService
	now       func() time.Time
	newID     func() string
}

type Option func(*Service)

// WithClock fixes the clock used for record and mutation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
		s.mutations.WithClock(now)
	}
}

func NewService(store TxStore, opts ...Option) *Service {
	s := &Service{
		store:     store,
		mutations: ledger.NewMutationService(),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run executes fn in one database transaction and records the outcome.
// Anything that is not already a ledger error comes back as
// *ledger.PersistenceError.
func (s *Service) run(ctx context.Context, op string, fn func(Store) error) error {
	start := time.Now()
	err := ledger.Persistence(op, s.store.WithTx(ctx, fn))
	metrics.ObserveOperation(op, start, ledger.Kind(err), err != nil)
	return err
}

// record writes one leg through the mutation service.
func (s *Service) record(ctx context.Context, st Store, owner ledger.OwnerID, wallet ledger.WalletID,
	dir ledger.Direction, amount decimal.Decimal, origin ledger.Origin) error {
	_, err := s.mutations.Record(ctx, st, ledger.MutationRequest{
		Origin:    origin,
		OwnerID:   owner,
		WalletID:  wallet,
		Amount:    amount,
		Direction: dir,
	})
	return err
}

// lockWallet loads a live wallet under lock or fails with NotFoundError.
func lockWallet(ctx context.Context, st Store, owner ledger.OwnerID, id ledger.WalletID) (*ledger.Wallet, error) {
	w, err := st.LockWallet(ctx, owner, id)
	if err != nil {
		return nil, ledger.Persistence("lock wallet", err)
	}
	if w == nil || w.IsDeleted() {
		return nil, &ledger.NotFoundError{Kind: "wallet", ID: string(id)}
	}
	return w, nil
}

func requirePositive(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return &ledger.InvalidAmountError{Field: field, Amount: d}
	}
	return nil
}

func requireNonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return &ledger.InvalidAmountError{Field: field, Amount: d}
	}
	return nil
}

func requireFunds(w *ledger.Wallet, needed decimal.Decimal) error {
	if w.Balance.LessThan(needed) {
		return &ledger.InsufficientBalanceError{
			WalletID:  w.ID,
			Available: w.Balance,
			Requested: needed,
		}
	}
	return nil
}

func reversal(name string) string { return "reversal of " + name }

// =============================================================================
// RAW LEDGER ACCESS
// =============================================================================

// RecordMutation writes a single mutation in its own transaction.
func (s *Service) RecordMutation(ctx context.Context, owner ledger.OwnerID, in RecordMutationInput) (*ledger.Mutation, error) {
	var m *ledger.Mutation
	err := s.run(ctx, "record_mutation", func(st Store) error {
		var err error
		m, err = s.mutations.Record(ctx, st, ledger.MutationRequest{
			Origin:    ledger.Origin{Kind: in.OriginKind, ID: in.OriginID, Name: in.OriginName},
			OwnerID:   owner,
			WalletID:  in.WalletID,
			Amount:    in.Amount,
			Direction: in.Direction,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// WalletMutations returns the full mutation history of a wallet, including
// a soft-deleted one.
func (s *Service) WalletMutations(ctx context.Context, owner ledger.OwnerID, id ledger.WalletID) ([]ledger.Mutation, error) {
	w, err := s.store.GetWallet(ctx, owner, id)
	if err != nil {
		return nil, ledger.Persistence("get wallet", err)
	}
	if w == nil {
		return nil, &ledger.NotFoundError{Kind: "wallet", ID: string(id)}
	}
	ms, err := s.store.Mutations(ctx, owner, id)
	if err != nil {
		return nil, ledger.Persistence("load mutations", err)
	}
	return ms, nil
}

// OriginMutations returns the mutations one record has caused.
func (s *Service) OriginMutations(ctx context.Context, owner ledger.OwnerID, kind ledger.OriginKind, id string) ([]ledger.Mutation, error) {
	if _, err := ledger.ParseOriginKind(string(kind)); err != nil {
		return nil, err
	}
	ms, err := s.store.MutationsByOrigin(ctx, owner, kind, id)
	if err != nil {
		return nil, ledger.Persistence("load mutations", err)
	}
	return ms, nil
}

// VerifyWallet replays a wallet's mutation trail against its balance.
func (s *Service) VerifyWallet(ctx context.Context, owner ledger.OwnerID, id ledger.WalletID) (ledger.Reconciliation, error) {
	var rec ledger.Reconciliation
	err := s.store.WithTx(ctx, func(st Store) error {
		var err error
		rec, err = ledger.VerifyWallet(ctx, st, owner, id)
		return err
	})
	return rec, ledger.Persistence("verify wallet", err)
}

// Summary totals an owner's wallets and open debts.
func (s *Service) Summary(ctx context.Context, owner ledger.OwnerID) (*Summary, error) {
	wallets, err := s.store.ListWallets(ctx, owner)
	if err != nil {
		return nil, ledger.Persistence("list wallets", err)
	}
	debts, err := s.store.ListDebts(ctx, owner)
	if err != nil {
		return nil, ledger.Persistence("list debts", err)
	}

	sum := &Summary{
		OwnerID:      owner,
		Wallets:      len(wallets),
		TotalBalance: decimal.Zero,
		Receivable:   decimal.Zero,
		Payable:      decimal.Zero,
	}
	for _, w := range wallets {
		sum.TotalBalance = sum.TotalBalance.Add(w.Balance)
	}
	for _, d := range debts {
		if d.Type == DebtPayable {
			sum.Payable = sum.Payable.Add(d.Remaining())
		} else {
			sum.Receivable = sum.Receivable.Add(d.Remaining())
		}
	}
	return sum, nil
}
