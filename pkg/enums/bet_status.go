package enums

// BetStatus maps to the bet_status_enum enum in Postgres. A bet leaves pending
// exactly once, during settlement, and is never mutated again.
type BetStatus string

const (
	BetStatusPending BetStatus = "pending"
	BetStatusWin     BetStatus = "win"
	BetStatusLose    BetStatus = "lose"
)

func (s BetStatus) IsValid() bool {
	switch s {
	case BetStatusPending, BetStatusWin, BetStatusLose:
		return true
	}
	return false
}
