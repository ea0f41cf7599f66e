/*
mutation.go - The wallet mutation service

PURPOSE:
  Record is the only code path that changes a wallet balance. Callers that
  need several legs (amount + fee, debit + credit) call it several times
  inside one enclosing database transaction; each leg reads the balance
  left by the previous one.

FLOW:
  1. Validate amount (> 0), direction and origin kind
  2. Lock the wallet row (NotFoundError if missing, foreign or deleted)
  3. last = wallet.Balance, current = last ± amount
  4. AppendMutation (row + balance update in the same transaction)

ATOMICITY:
  Record does not open a transaction itself. The store it is handed must be
  transaction-scoped; if the caller's transaction rolls back, the mutation
  row and the balance update disappear together.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/wallet-ledger/metrics"
)

// MutationRequest is one balance effect.
type MutationRequest struct {
	Origin    Origin
	OwnerID   OwnerID
	WalletID  WalletID
	Amount    decimal.Decimal
	Direction Direction
}

// MutationService writes mutations. The zero value is not usable; call
// NewMutationService.
type MutationService struct {
	now   func() time.Time
	newID func() string
}

func NewMutationService() *MutationService {
	return &MutationService{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// WithClock replaces the clock used for CreatedAt. Tests only.
func (s *MutationService) WithClock(now func() time.Time) *MutationService {
	s.now = now
	return s
}

// Record validates req, locks the wallet and appends one mutation.
func (s *MutationService) Record(ctx context.Context, store Store, req MutationRequest) (*Mutation, error) {
	if !req.Amount.IsPositive() {
		return nil, &InvalidAmountError{Field: "amount", Amount: req.Amount}
	}
	if !req.Direction.Valid() {
		return nil, fmt.Errorf("%w: direction %q", ErrInvalidMutation, req.Direction)
	}
	if !req.Origin.Kind.Valid() {
		return nil, fmt.Errorf("%w: origin kind %q", ErrInvalidMutation, req.Origin.Kind)
	}

	wallet, err := store.LockWallet(ctx, req.OwnerID, req.WalletID)
	if err != nil {
		return nil, Persistence("lock wallet", err)
	}
	if wallet == nil || wallet.IsDeleted() {
		return nil, &NotFoundError{Kind: "wallet", ID: string(req.WalletID)}
	}

	m := &Mutation{
		ID:             MutationID(s.newID()),
		OwnerID:        req.OwnerID,
		WalletID:       req.WalletID,
		Type:           req.Direction,
		LastBalance:    wallet.Balance,
		Amount:         req.Amount,
		CurrentBalance: req.Direction.Apply(wallet.Balance, req.Amount),
		Description:    req.Origin.Describe(),
		OriginKind:     req.Origin.Kind,
		OriginID:       req.Origin.ID,
		CreatedAt:      s.now(),
	}

	if err := store.AppendMutation(ctx, m); err != nil {
		return nil, Persistence("append mutation", err)
	}

	metrics.MutationsRecorded.WithLabelValues(string(m.Type), string(m.OriginKind)).Inc()
	return m, nil
}
