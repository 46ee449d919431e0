package enums

import "fmt"

// AccountKind maps to the account_kind_enum enum in Postgres.
type AccountKind string

const (
	AccountKindUser  AccountKind = "user"
	AccountKindAgent AccountKind = "agent"
)

var validAccountKinds = []AccountKind{
	AccountKindUser,
	AccountKindAgent,
}

// IsValid reports whether the value matches the canonical account kind enum.
func (k AccountKind) IsValid() bool {
	for _, candidate := range validAccountKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseAccountKind converts raw input into AccountKind.
func ParseAccountKind(value string) (AccountKind, error) {
	for _, candidate := range validAccountKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account kind %q", value)
}
