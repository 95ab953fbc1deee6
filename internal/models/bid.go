package models

import "github.com/shopspring/decimal"

// Bid is the current occupant of a rank slot. At most one bid is active per
// rank at any time.
type Bid struct {
	ID     string
	ItemID string
	Rank   int
	Amount decimal.Decimal
}
