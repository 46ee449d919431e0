package bets

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/goldenlotto/lottery-backend/pkg/db/models"
	"github.com/goldenlotto/lottery-backend/pkg/enums"
)

// Repository manages persistence for bets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, bet *models.Bet) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Bet, error)
	// FindByIDForUpdate takes a row lock; callers must be inside a transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Bet, error)
	ListByAccountID(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Bet, error)
	// ListPendingPage returns pending bets of the given lottery type placed
	// within [from, to), keyset-paged by bet id.
	ListPendingPage(ctx context.Context, lotteryType enums.LotteryType, from, to time.Time, afterID uuid.UUID, limit int) ([]models.Bet, error)
	Settle(ctx context.Context, id uuid.UUID, status enums.BetStatus, resultID uuid.UUID, winningAmount *decimal.Decimal) error
	// AggregateWins returns the count and payout sum of winning bets tied to
	// the given result.
	AggregateWins(ctx context.Context, resultID uuid.UUID) (int, decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a bet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, bet *models.Bet) error {
	return r.db.WithContext(ctx).Create(bet).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Bet, error) {
	var bet models.Bet
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&bet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bet, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Bet, error) {
	var bet models.Bet
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&bet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bet, nil
}

func (r *repository) ListByAccountID(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Bet, error) {
	var out []models.Bet
	q := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("placed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) ListPendingPage(ctx context.Context, lotteryType enums.LotteryType, from, to time.Time, afterID uuid.UUID, limit int) ([]models.Bet, error) {
	var out []models.Bet
	q := r.db.WithContext(ctx).
		Where("status = ? AND lottery_type = ? AND placed_at >= ? AND placed_at < ?", enums.BetStatusPending, lotteryType, from, to)
	if afterID != uuid.Nil {
		q = q.Where("id > ?", afterID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) Settle(ctx context.Context, id uuid.UUID, status enums.BetStatus, resultID uuid.UUID, winningAmount *decimal.Decimal) error {
	updates := map[string]any{
		"status":         status,
		"result_id":      resultID,
		"winning_amount": winningAmount,
	}
	return r.db.WithContext(ctx).
		Model(&models.Bet{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) AggregateWins(ctx context.Context, resultID uuid.UUID) (int, decimal.Decimal, error) {
	var row struct {
		Count int
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Bet{}).
		Select("COUNT(*) AS count, COALESCE(SUM(winning_amount), 0) AS total").
		Where("result_id = ? AND status = ?", resultID, enums.BetStatusWin).
		Scan(&row).Error
	if err != nil {
		return 0, decimal.Zero, err
	}
	return row.Count, row.Total, nil
}
