package ranking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/trendlist/trendlist/internal/catalog"
	"github.com/trendlist/trendlist/internal/interfaces"
	"github.com/trendlist/trendlist/internal/models"
	"github.com/trendlist/trendlist/internal/models/events"
)

// TopicRankPurchased is the event topic announcing a committed buy.
const TopicRankPurchased = "rank_purchased"

// Allocator resolves contention for purchasable rank slots. An incoming bid
// either claims a free rank, re-prices the caller's own bid, or displaces the
// occupant when it pays strictly more.
type Allocator struct {
	store     interfaces.CatalogStore
	publisher interfaces.EventPublisher
	log       zerolog.Logger

	muMap map[int]*sync.Mutex // per-rank lock
	mapMu sync.Mutex          // protects the muMap itself
}

// NewAllocator builds an Allocator on top of any CatalogStore implementation.
// The publisher may be nil when no event pipeline is configured.
func NewAllocator(store interfaces.CatalogStore, publisher interfaces.EventPublisher, log zerolog.Logger) *Allocator {
	return &Allocator{
		store:     store,
		publisher: publisher,
		log:       log,
		muMap:     make(map[int]*sync.Mutex),
	}
}

func (a *Allocator) rankLock(rank int) *sync.Mutex {
	a.mapMu.Lock()
	defer a.mapMu.Unlock()

	if _, exists := a.muMap[rank]; !exists {
		a.muMap[rank] = &sync.Mutex{}
	}
	return a.muMap[rank]
}

// Buy places a bid of amount on the given rank for the item. The occupant
// lookup, the decision and every resulting write happen inside one store
// transaction while the per-rank lock is held, so two racing buys for the
// same rank are applied one after the other against committed state.
func (a *Allocator) Buy(ctx context.Context, itemID string, amount decimal.Decimal, rank int) error {
	if !amount.IsPositive() {
		return catalog.ErrInvalidAmount
	}
	if rank < 1 {
		return catalog.ErrRankOutOfRange
	}

	mu := a.rankLock(rank)
	mu.Lock()
	defer mu.Unlock()

	var ev events.RankPurchased
	err := a.store.Update(ctx, func(tx interfaces.CatalogTx) error {
		item, ok, err := tx.FindItem(ctx, itemID)
		if err != nil {
			return catalog.Transient("buy", err)
		}
		if !ok {
			return catalog.ErrItemNotFound
		}

		total, err := tx.CountItems(ctx)
		if err != nil {
			return catalog.Transient("buy", err)
		}
		if rank > total {
			return catalog.ErrRankOutOfRange
		}

		occupant, occupied, err := tx.FindBidByRank(ctx, rank)
		if err != nil {
			return catalog.Transient("buy", err)
		}

		var winning models.Bid
		var displaced string
		switch {
		case occupied && occupant.ItemID == item.ID:
			// Re-bid on an already held rank only re-prices it.
			occupant.Amount = amount
			if err := tx.SaveBid(ctx, occupant); err != nil {
				return catalog.Transient("buy", err)
			}
			winning = occupant

		case occupied && !amount.GreaterThan(occupant.Amount):
			return catalog.ErrInsufficientAmount

		default:
			if occupied {
				if err := a.evict(ctx, tx, occupant); err != nil {
					return err
				}
				displaced = occupant.ItemID
			}
			winning = models.Bid{
				ID:     uuid.NewString(),
				ItemID: item.ID,
				Rank:   rank,
				Amount: amount,
			}
			if err := tx.SaveBid(ctx, winning); err != nil {
				return catalog.Transient("buy", err)
			}
		}

		item.AssignedRank = rank
		if err := tx.SaveItem(ctx, item); err != nil {
			return catalog.Transient("buy", err)
		}

		ev = events.RankPurchased{
			BidID:           winning.ID,
			ItemID:          item.ID,
			Rank:            rank,
			Amount:          amount,
			DisplacedItemID: displaced,
			OccurredAt:      time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		if catalog.IsRejection(err) || catalog.IsTransient(err) {
			return err
		}
		return catalog.Transient("buy", err)
	}

	a.announce(ev)
	return nil
}

// evict removes the outbid occupant: its item no longer holds the rank, and
// every bid recorded at the rank is dropped. With the one-bid-per-rank
// invariant intact that delete hits exactly the occupant; the rank-wide form
// also converges a corrupted store back to a single bid.
func (a *Allocator) evict(ctx context.Context, tx interfaces.CatalogTx, occupant models.Bid) error {
	loser, ok, err := tx.FindItem(ctx, occupant.ItemID)
	if err != nil {
		return catalog.Transient("buy", err)
	}
	if ok && loser.AssignedRank == occupant.Rank {
		loser.AssignedRank = 0
		if err := tx.SaveItem(ctx, loser); err != nil {
			return catalog.Transient("buy", err)
		}
	}
	if err := tx.DeleteBidsAtRank(ctx, occupant.Rank); err != nil {
		return catalog.Transient("buy", err)
	}
	return nil
}

func (a *Allocator) announce(ev events.RankPurchased) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.Publish(TopicRankPurchased, ev); err != nil {
		a.log.Warn().Err(err).Str("bid_id", ev.BidID).Msg("rank purchase event publish failed")
	}
}
