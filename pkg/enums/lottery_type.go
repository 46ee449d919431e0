package enums

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LotteryType maps to the lottery_type_enum enum in Postgres.
type LotteryType string

const (
	LotteryType2D   LotteryType = "2D"
	LotteryType3D   LotteryType = "3D"
	LotteryTypeThai LotteryType = "Thai"
	LotteryTypeLao  LotteryType = "Lao"
)

var validLotteryTypes = []LotteryType{
	LotteryType2D,
	LotteryType3D,
	LotteryTypeThai,
	LotteryTypeLao,
}

// payoutMultipliers is the fixed per-game payout table. A type missing from
// this table pays zero and is treated as a configuration error by callers.
var payoutMultipliers = map[LotteryType]decimal.Decimal{
	LotteryType2D:   decimal.NewFromInt(85),
	LotteryType3D:   decimal.NewFromInt(500),
	LotteryTypeThai: decimal.NewFromInt(90),
	LotteryTypeLao:  decimal.NewFromInt(90),
}

func (t LotteryType) IsValid() bool {
	for _, candidate := range validLotteryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// PayoutMultiplier returns the stake multiplier applied to winning bets.
// Unknown types return zero.
func (t LotteryType) PayoutMultiplier() decimal.Decimal {
	if m, ok := payoutMultipliers[t]; ok {
		return m
	}
	return decimal.Zero
}

func ParseLotteryType(value string) (LotteryType, error) {
	for _, candidate := range validLotteryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lottery type %q", value)
}
