package bets

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/goldenlotto/lottery-backend/internal/accounts"
	"github.com/goldenlotto/lottery-backend/pkg/db/models"
	"github.com/goldenlotto/lottery-backend/pkg/enums"
	pkgerrors "github.com/goldenlotto/lottery-backend/pkg/errors"
	"github.com/goldenlotto/lottery-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type balanceApplier interface {
	ApplyInTx(ctx context.Context, tx *gorm.DB, adj accounts.Adjustment) (*models.Transaction, error)
}

type commissionHook interface {
	OnBetPlaced(ctx context.Context, bet *models.Bet, stakeTransactionID uuid.UUID) error
}

// PlaceBetInput captures a wager request. The stake is debited from the
// account in the same transaction that records the bet.
type PlaceBetInput struct {
	AccountID      uuid.UUID
	LotteryType    enums.LotteryType
	NumberSelected string
	StakeAmount    decimal.Decimal
	PlacedAt       time.Time
}

// Service places and reads bets.
type Service interface {
	PlaceBet(ctx context.Context, input PlaceBetInput) (*models.Bet, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bet, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Bet, error)
}

type service struct {
	tx         txRunner
	repo       Repository
	balances   balanceApplier
	commission commissionHook
	logg       *logger.Logger
}

// NewService wires the bet service. The commission hook may be nil when bets
// should not pay agent commission.
func NewService(tx txRunner, repo Repository, balances balanceApplier, commission commissionHook, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("bet repository required")
	}
	if balances == nil {
		return nil, fmt.Errorf("balance applier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{tx: tx, repo: repo, balances: balances, commission: commission, logg: logg}, nil
}

func (s *service) PlaceBet(ctx context.Context, input PlaceBetInput) (*models.Bet, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	if !input.LotteryType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid lottery type %q", input.LotteryType))
	}
	if err := validateNumber(input.LotteryType, input.NumberSelected); err != nil {
		return nil, err
	}
	if !input.StakeAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stake amount must be positive")
	}

	placedAt := input.PlacedAt
	if placedAt.IsZero() {
		placedAt = time.Now().UTC()
	}

	bet := &models.Bet{
		ID:             uuid.New(),
		AccountID:      input.AccountID,
		LotteryType:    input.LotteryType,
		NumberSelected: input.NumberSelected,
		StakeAmount:    input.StakeAmount,
		PlacedAt:       placedAt,
		Status:         enums.BetStatusPending,
	}

	var stake *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, bet); err != nil {
			return err
		}
		txn, err := s.balances.ApplyInTx(ctx, tx, accounts.Adjustment{
			AccountID: input.AccountID,
			Type:      enums.TransactionTypeBet,
			Direction: enums.EntryDirectionDebit,
			Amount:    input.StakeAmount,
			Reference: fmt.Sprintf("bet:%s", bet.ID),
		})
		if err != nil {
			return err
		}
		stake = txn
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.commission != nil {
		// Commission must never fail the bet itself; replays are caught by
		// the commission source uniqueness.
		if err := s.commission.OnBetPlaced(ctx, bet, stake.ID); err != nil {
			s.logg.Error(s.logg.WithAccountID(ctx, bet.AccountID.String()), "bet commission failed", err)
		}
	}
	return bet, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Bet, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bet id required")
	}
	bet, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if bet == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bet not found")
	}
	return bet, nil
}

func (s *service) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Bet, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	return s.repo.ListByAccountID(ctx, accountID, limit)
}

func validateNumber(lotteryType enums.LotteryType, number string) error {
	if number == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "number selected required")
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return pkgerrors.New(pkgerrors.CodeValidation, "number selected must contain only digits")
		}
	}
	switch lotteryType {
	case enums.LotteryType2D:
		if len(number) != 2 {
			return pkgerrors.New(pkgerrors.CodeValidation, "2D numbers are exactly two digits")
		}
	case enums.LotteryType3D:
		if len(number) != 3 {
			return pkgerrors.New(pkgerrors.CodeValidation, "3D numbers are exactly three digits")
		}
	default:
		if len(number) > 6 {
			return pkgerrors.New(pkgerrors.CodeValidation, "number selected is too long")
		}
	}
	return nil
}
