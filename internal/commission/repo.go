package commission

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/goldenlotto/lottery-backend/pkg/db/models"
	"github.com/goldenlotto/lottery-backend/pkg/enums"
)

// TypeTotal is one row of an agent's commission summary.
type TypeTotal struct {
	CommissionType enums.CommissionType `json:"commission_type"`
	Total          decimal.Decimal      `json:"total"`
	Count          int                  `json:"count"`
}

// Repository manages persistence for commission records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.CommissionRecord) error
	FindBySource(ctx context.Context, sourceTransactionID uuid.UUID, commissionType enums.CommissionType) (*models.CommissionRecord, error)
	ListByAgentID(ctx context.Context, agentID uuid.UUID, limit int) ([]models.CommissionRecord, error)
	SummarizeByAgentID(ctx context.Context, agentID uuid.UUID) ([]TypeTotal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a commission repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.CommissionRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) FindBySource(ctx context.Context, sourceTransactionID uuid.UUID, commissionType enums.CommissionType) (*models.CommissionRecord, error) {
	var record models.CommissionRecord
	err := r.db.WithContext(ctx).
		Where("source_transaction_id = ? AND commission_type = ?", sourceTransactionID, commissionType).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) ListByAgentID(ctx context.Context, agentID uuid.UUID, limit int) ([]models.CommissionRecord, error) {
	var out []models.CommissionRecord
	q := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) SummarizeByAgentID(ctx context.Context, agentID uuid.UUID) ([]TypeTotal, error) {
	var rows []TypeTotal
	err := r.db.WithContext(ctx).
		Model(&models.CommissionRecord{}).
		Select("commission_type, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("agent_id = ?", agentID).
		Group("commission_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
