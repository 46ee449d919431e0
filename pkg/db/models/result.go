package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldenlotto/lottery-backend/pkg/enums"
)

// Result is the published outcome for one (lottery_type, draw_date) pair. The
// uniqueness constraint on that pair is the settlement mutual-exclusion gate.
// Settled flips once all matching bets have left pending; WinnersCount and
// TotalPayout store the summary returned on idempotent re-submission.
type Result struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LotteryType   enums.LotteryType `gorm:"column:lottery_type;type:lottery_type_enum;not null;uniqueIndex:idx_results_lottery_draw"`
	WinningNumber string            `gorm:"column:winning_number;not null"`
	DrawDate      time.Time         `gorm:"column:draw_date;type:date;not null;uniqueIndex:idx_results_lottery_draw"`
	Settled       bool              `gorm:"column:settled;not null;default:false"`
	WinnersCount  int               `gorm:"column:winners_count;not null;default:0"`
	TotalPayout   decimal.Decimal   `gorm:"column:total_payout;type:numeric(18,2);not null;default:0"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
