package enums

// EntryDirection records which way a transaction moved an account's balance.
// Amounts are stored as positive magnitudes; a two-party transfer writes one
// debit row and one credit row, so the type alone cannot carry the sign.
type EntryDirection string

const (
	EntryDirectionDebit  EntryDirection = "debit"
	EntryDirectionCredit EntryDirection = "credit"
)

func (d EntryDirection) IsValid() bool {
	return d == EntryDirectionDebit || d == EntryDirectionCredit
}
