package events

import "time"

type VoteCast struct {
	VoteID     string    `json:"vote_id"`
	AccountID  string    `json:"account_id"`
	ItemID     string    `json:"item_id"`
	Amount     int       `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}
