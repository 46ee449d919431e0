package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldenlotto/lottery-backend/pkg/db/models"
	"github.com/goldenlotto/lottery-backend/pkg/enums"
	pkgerrors "github.com/goldenlotto/lottery-backend/pkg/errors"
)

// Service exposes the read surface over the transaction ledger. Writes happen
// through Repository handles passed into the account store's atomic units.
type Service interface {
	GetByReference(ctx context.Context, reference string) (*models.Transaction, error)
	HasReference(ctx context.Context, reference string) (bool, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Transaction, error)
	// ListStalePending surfaces pending rows older than age. The account
	// store records and completes rows inside one atomic unit, so none of
	// its commits leave a pending row behind; this guards against
	// out-of-band writers and future flows that split the unit.
	ListStalePending(ctx context.Context, age time.Duration, limit int) ([]models.Transaction, error)
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

// NewEntry builds a validated pending transaction row. Balance snapshots are
// the caller's: they must come from inside the same atomic unit that applies
// the delta.
func NewEntry(accountID uuid.UUID, txType enums.TransactionType, direction enums.EntryDirection, amount, balanceBefore, balanceAfter decimal.Decimal, reference string) (*models.Transaction, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	if !txType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", txType))
	}
	if !direction.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid entry direction %q", direction))
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference required")
	}
	return &models.Transaction{
		AccountID:     accountID,
		Type:          txType,
		Direction:     direction,
		Amount:        amount,
		Status:        enums.TransactionStatusPending,
		Reference:     reference,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
	}, nil
}

func (s *service) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference required")
	}
	txn, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	return txn, nil
}

func (s *service) HasReference(ctx context.Context, reference string) (bool, error) {
	if reference == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "reference required")
	}
	txn, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return false, err
	}
	return txn != nil, nil
}

func (s *service) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Transaction, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	return s.repo.ListByAccountID(ctx, accountID, limit)
}

func (s *service) ListStalePending(ctx context.Context, age time.Duration, limit int) ([]models.Transaction, error) {
	cutoff := time.Now().UTC().Add(-age)
	return s.repo.ListStalePending(ctx, cutoff, limit)
}
