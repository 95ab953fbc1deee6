package voting

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trendlist/trendlist/internal/catalog"
	"github.com/trendlist/trendlist/internal/interfaces"
	"github.com/trendlist/trendlist/internal/models"
	"github.com/trendlist/trendlist/internal/models/events"
)

// TopicVoteCast is the event topic announcing a committed vote.
const TopicVoteCast = "vote_cast"

// Ledger applies votes against the catalog store. Each vote records an
// immutable VoteRecord, debits the voter's credits and bumps the item's vote
// count as one atomic unit.
type Ledger struct {
	store     interfaces.CatalogStore
	publisher interfaces.EventPublisher
	log       zerolog.Logger

	muMap map[string]*sync.Mutex // per-account lock
	mapMu sync.Mutex             // protects the muMap itself
}

// NewLedger builds a Ledger on top of any CatalogStore implementation. The
// publisher may be nil when no event pipeline is configured.
func NewLedger(store interfaces.CatalogStore, publisher interfaces.EventPublisher, log zerolog.Logger) *Ledger {
	return &Ledger{
		store:     store,
		publisher: publisher,
		log:       log,
		muMap:     make(map[string]*sync.Mutex),
	}
}

func (l *Ledger) accountLock(accountID string) *sync.Mutex {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	if _, exists := l.muMap[accountID]; !exists {
		l.muMap[accountID] = &sync.Mutex{}
	}
	return l.muMap[accountID]
}

// Vote spends amount credits from the account on the item. The balance check
// and the three resulting writes happen inside one store transaction, so two
// concurrent votes by the same account can never both pass the check against
// a stale balance.
func (l *Ledger) Vote(ctx context.Context, accountID, itemID string, amount int, at time.Time) error {
	if amount <= 0 {
		return catalog.ErrInvalidAmount
	}

	mu := l.accountLock(accountID)
	mu.Lock()
	defer mu.Unlock()

	rec := models.VoteRecord{
		ID:        uuid.NewString(),
		AccountID: accountID,
		ItemID:    itemID,
		Amount:    amount,
		CreatedAt: at,
	}

	err := l.store.Update(ctx, func(tx interfaces.CatalogTx) error {
		item, ok, err := tx.FindItem(ctx, itemID)
		if err != nil {
			return catalog.Transient("vote", err)
		}
		if !ok {
			return catalog.ErrItemNotFound
		}

		account, ok, err := tx.FindAccount(ctx, accountID)
		if err != nil {
			return catalog.Transient("vote", err)
		}
		if !ok {
			return catalog.ErrAccountNotFound
		}
		if amount > account.Balance {
			return catalog.ErrInsufficientBalance
		}

		if err := tx.SaveVoteRecord(ctx, rec); err != nil {
			return catalog.Transient("vote", err)
		}

		account.Balance -= amount
		if err := tx.SaveAccount(ctx, account); err != nil {
			return catalog.Transient("vote", err)
		}

		item.VoteCount += amount
		if err := tx.SaveItem(ctx, item); err != nil {
			return catalog.Transient("vote", err)
		}
		return nil
	})
	if err != nil {
		if catalog.IsRejection(err) || catalog.IsTransient(err) {
			return err
		}
		return catalog.Transient("vote", err)
	}

	l.announce(rec)
	return nil
}

// announce publishes the vote event best-effort; a failed publish never
// rolls back the committed vote.
func (l *Ledger) announce(rec models.VoteRecord) {
	if l.publisher == nil {
		return
	}
	ev := events.VoteCast{
		VoteID:     rec.ID,
		AccountID:  rec.AccountID,
		ItemID:     rec.ItemID,
		Amount:     rec.Amount,
		OccurredAt: rec.CreatedAt,
	}
	if err := l.publisher.Publish(TopicVoteCast, ev); err != nil {
		l.log.Warn().Err(err).Str("vote_id", rec.ID).Msg("vote event publish failed")
	}
}
