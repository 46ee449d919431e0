package enums

// TransactionStatus maps to the transaction_status_enum enum in Postgres. Rows
// are written pending, flipped to completed once the balance delta is applied
// inside the same atomic unit, and never touched again.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusFailed:
		return true
	}
	return false
}
