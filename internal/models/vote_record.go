package models

import "time"

// VoteRecord is the immutable record of a single successful vote
type VoteRecord struct {
	ID        string
	AccountID string
	ItemID    string
	Amount    int
	CreatedAt time.Time
}
