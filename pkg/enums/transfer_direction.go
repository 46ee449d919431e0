package enums

import "fmt"

// TransferDirection distinguishes the two agent/user money flows.
type TransferDirection string

const (
	// TransferDirectionDeposit moves funds agent -> user.
	TransferDirectionDeposit TransferDirection = "deposit"
	// TransferDirectionWithdraw moves funds user -> agent.
	TransferDirectionWithdraw TransferDirection = "withdraw"
)

func (d TransferDirection) IsValid() bool {
	return d == TransferDirectionDeposit || d == TransferDirectionWithdraw
}

func ParseTransferDirection(value string) (TransferDirection, error) {
	switch TransferDirection(value) {
	case TransferDirectionDeposit:
		return TransferDirectionDeposit, nil
	case TransferDirectionWithdraw:
		return TransferDirectionWithdraw, nil
	}
	return "", fmt.Errorf("invalid transfer direction %q", value)
}
