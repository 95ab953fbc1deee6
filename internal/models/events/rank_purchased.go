package events

import (
	"time"

	"github.com/shopspring/decimal"
)

type RankPurchased struct {
	BidID           string          `json:"bid_id"`
	ItemID          string          `json:"item_id"`
	Rank            int             `json:"rank"`
	Amount          decimal.Decimal `json:"amount"`
	DisplacedItemID string          `json:"displaced_item_id,omitempty"`
	OccurredAt      time.Time       `json:"occurred_at"`
}
