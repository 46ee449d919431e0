package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldenlotto/lottery-backend/pkg/enums"
)

// Account is the single source of truth for how much money an account holds.
// Only the account store mutates Balance, and only inside an atomic unit that
// also records the matching transaction row.
type Account struct {
	ID      uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Kind    enums.AccountKind   `gorm:"column:kind;type:account_kind_enum;not null"`
	Balance decimal.Decimal     `gorm:"column:balance;type:numeric(18,2);not null"`
	Status  enums.AccountStatus `gorm:"column:status;type:account_status_enum;not null;default:active"`

	// AgentID is the owning agent for user accounts; nil for agent accounts.
	AgentID *uuid.UUID `gorm:"column:agent_id;type:uuid"`

	// CommissionRates holds the per-agent rate map (commission_type -> rate)
	// for agent accounts; nil for user accounts.
	CommissionRates json.RawMessage `gorm:"column:commission_rates;type:jsonb"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// RateFor decodes the commission rate configured for the given type. The
// second return value reports whether a rate is configured at all.
func (a *Account) RateFor(commissionType enums.CommissionType) (decimal.Decimal, bool) {
	if a == nil || len(a.CommissionRates) == 0 {
		return decimal.Zero, false
	}
	var rates map[string]string
	if err := json.Unmarshal(a.CommissionRates, &rates); err != nil {
		return decimal.Zero, false
	}
	raw, ok := rates[string(commissionType)]
	if !ok {
		return decimal.Zero, false
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return rate, true
}
