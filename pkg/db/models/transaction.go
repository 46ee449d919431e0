package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldenlotto/lottery-backend/pkg/enums"
)

// Transaction is the append-only record of a single balance delta. Amount is a
// positive magnitude; Direction carries the sign. Reference is unique across
// the table and doubles as the idempotency token for the mutation.
type Transaction struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID               `gorm:"column:account_id;type:uuid;not null;index"`
	Type      enums.TransactionType   `gorm:"column:type;type:transaction_type_enum;not null"`
	Direction enums.EntryDirection    `gorm:"column:direction;type:entry_direction_enum;not null"`
	Amount    decimal.Decimal         `gorm:"column:amount;type:numeric(18,2);not null"`
	Status    enums.TransactionStatus `gorm:"column:status;type:transaction_status_enum;not null;default:pending"`
	Reference string                  `gorm:"column:reference;not null;uniqueIndex:idx_transactions_reference"`

	// Balance snapshots taken inside the atomic unit that applied the delta.
	// They make idempotent replays answerable and reconciliation decidable.
	BalanceBefore decimal.Decimal `gorm:"column:balance_before;type:numeric(18,2);not null"`
	BalanceAfter  decimal.Decimal `gorm:"column:balance_after;type:numeric(18,2);not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
