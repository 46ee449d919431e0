package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldenlotto/lottery-backend/pkg/enums"
)

// CommissionRecord is the append-only trace of commission earned by an agent
// from a qualifying transaction. The (source_transaction_id, commission_type)
// uniqueness constraint makes replays of the same upstream event no-ops.
type CommissionRecord struct {
	ID                  uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AgentID             uuid.UUID            `gorm:"column:agent_id;type:uuid;not null;index"`
	CommissionType      enums.CommissionType `gorm:"column:commission_type;type:commission_type_enum;not null;uniqueIndex:idx_commission_source"`
	Amount              decimal.Decimal      `gorm:"column:amount;type:numeric(18,2);not null"`
	SourceTransactionID uuid.UUID            `gorm:"column:source_transaction_id;type:uuid;not null;uniqueIndex:idx_commission_source"`
	CreatedAt           time.Time            `gorm:"column:created_at;autoCreateTime"`
}
