package enums

import "fmt"

// CommissionType maps to the commission_type_enum enum in Postgres.
type CommissionType string

const (
	CommissionTypeBet        CommissionType = "bet"
	CommissionTypeReferral   CommissionType = "referral"
	CommissionTypeAdjustment CommissionType = "adjustment"
)

var validCommissionTypes = []CommissionType{
	CommissionTypeBet,
	CommissionTypeReferral,
	CommissionTypeAdjustment,
}

func (t CommissionType) IsValid() bool {
	for _, candidate := range validCommissionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

func ParseCommissionType(value string) (CommissionType, error) {
	for _, candidate := range validCommissionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission type %q", value)
}
