package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldenlotto/lottery-backend/pkg/enums"
)

// Bet records a placed wager. Settlement flips Status from pending exactly
// once and fills ResultID/WinningAmount; the row is never mutated afterwards.
type Bet struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID      uuid.UUID         `gorm:"column:account_id;type:uuid;not null;index"`
	LotteryType    enums.LotteryType `gorm:"column:lottery_type;type:lottery_type_enum;not null"`
	NumberSelected string            `gorm:"column:number_selected;not null"`
	StakeAmount    decimal.Decimal   `gorm:"column:stake_amount;type:numeric(18,2);not null"`
	PlacedAt       time.Time         `gorm:"column:placed_at;not null"`
	Status         enums.BetStatus   `gorm:"column:status;type:bet_status_enum;not null;default:pending;index:idx_bets_pending_draw,where:status = 'pending'"`
	ResultID       *uuid.UUID        `gorm:"column:result_id;type:uuid"`
	WinningAmount  *decimal.Decimal  `gorm:"column:winning_amount;type:numeric(18,2)"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
}
