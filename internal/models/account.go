package models

// DefaultVoteCredits is the balance every newly registered account starts
// with. Credits are only replenished externally.
const DefaultVoteCredits = 10

// Account represents a participant that spends vote credits on catalog items
type Account struct {
	ID      string
	Name    string
	Balance int // remaining vote credits, never negative
}
