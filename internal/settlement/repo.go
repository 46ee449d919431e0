package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/goldenlotto/lottery-backend/pkg/db/models"
	"github.com/goldenlotto/lottery-backend/pkg/enums"
)

// Repository manages persistence for published results.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, result *models.Result) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Result, error)
	FindByDraw(ctx context.Context, lotteryType enums.LotteryType, drawDate time.Time) (*models.Result, error)
	MarkSettled(ctx context.Context, id uuid.UUID, winnersCount int, totalPayout decimal.Decimal) error
	ListUnsettled(ctx context.Context, limit int) ([]models.Result, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a result repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, result *models.Result) error {
	return r.db.WithContext(ctx).Create(result).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Result, error) {
	var result models.Result
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *repository) FindByDraw(ctx context.Context, lotteryType enums.LotteryType, drawDate time.Time) (*models.Result, error) {
	var result models.Result
	err := r.db.WithContext(ctx).
		Where("lottery_type = ? AND draw_date = ?", lotteryType, drawDate.Format("2006-01-02")).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *repository) MarkSettled(ctx context.Context, id uuid.UUID, winnersCount int, totalPayout decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Result{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"settled":       true,
			"winners_count": winnersCount,
			"total_payout":  totalPayout,
		}).Error
}

func (r *repository) ListUnsettled(ctx context.Context, limit int) ([]models.Result, error) {
	var out []models.Result
	q := r.db.WithContext(ctx).
		Where("settled = ?", false).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
