package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/trendlist/trendlist/internal/interfaces"
	"github.com/trendlist/trendlist/internal/models"
)

// Store is an in-memory implementation of interfaces.CatalogStore. It is safe
// for concurrent use and is primarily intended for tests and local
// development. Bids are keyed by rank, so at most one bid per rank can ever
// be stored.
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	items    map[string]models.Item
	accounts map[string]models.Account
	bids     map[int]models.Bid
	votes    []models.VoteRecord
}

var _ interfaces.CatalogStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:   1,
		items:    make(map[string]models.Item),
		accounts: make(map[string]models.Account),
		bids:     make(map[int]models.Bid),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// Update runs fn against a private copy of the catalog. The copy replaces
// the live state only when fn succeeds, so a failing step discards every
// staged write.
func (s *Store) Update(_ context.Context, fn func(tx interfaces.CatalogTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		items:    maps.Clone(s.items),
		accounts: maps.Clone(s.accounts),
		bids:     maps.Clone(s.bids),
		votes:    slices.Clone(s.votes),
	}
	if err := fn(tx); err != nil {
		return err
	}

	s.items = tx.items
	s.accounts = tx.accounts
	s.bids = tx.bids
	s.votes = tx.votes
	return nil
}

func (s *Store) CreateItem(_ context.Context, item models.Item) (models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" {
		item.ID = s.nextIDLocked()
	} else if _, exists := s.items[item.ID]; exists {
		return models.Item{}, fmt.Errorf("item %s already exists", item.ID)
	}
	s.items[item.ID] = item
	return item, nil
}

func (s *Store) FindItem(_ context.Context, id string) (models.Item, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	return item, ok, nil
}

func (s *Store) ListItems(_ context.Context) ([]models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]models.Item, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *Store) CountItems(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

func (s *Store) CreateAccount(_ context.Context, account models.Account) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if account.ID == "" {
		account.ID = s.nextIDLocked()
	} else if _, exists := s.accounts[account.ID]; exists {
		return models.Account{}, fmt.Errorf("account %s already exists", account.ID)
	}
	if account.Balance == 0 {
		account.Balance = models.DefaultVoteCredits
	}
	s.accounts[account.ID] = account
	return account, nil
}

func (s *Store) FindAccount(_ context.Context, id string) (models.Account, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	return account, ok, nil
}

func (s *Store) FindBidByRank(_ context.Context, rank int) (models.Bid, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bid, ok := s.bids[rank]
	return bid, ok, nil
}

func (s *Store) ListVoteRecords(_ context.Context) ([]models.VoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.votes), nil
}

// memTx is the transactional view handed to Update callbacks. It owns cloned
// maps, so every write stays private until the store commits them.
type memTx struct {
	items    map[string]models.Item
	accounts map[string]models.Account
	bids     map[int]models.Bid
	votes    []models.VoteRecord
}

var _ interfaces.CatalogTx = (*memTx)(nil)

func (t *memTx) FindItem(_ context.Context, id string) (models.Item, bool, error) {
	item, ok := t.items[id]
	return item, ok, nil
}

func (t *memTx) SaveItem(_ context.Context, item models.Item) error {
	if item.ID == "" {
		return fmt.Errorf("save item: missing id")
	}
	t.items[item.ID] = item
	return nil
}

func (t *memTx) CountItems(_ context.Context) (int, error) {
	return len(t.items), nil
}

func (t *memTx) FindAccount(_ context.Context, id string) (models.Account, bool, error) {
	account, ok := t.accounts[id]
	return account, ok, nil
}

func (t *memTx) SaveAccount(_ context.Context, account models.Account) error {
	if account.ID == "" {
		return fmt.Errorf("save account: missing id")
	}
	t.accounts[account.ID] = account
	return nil
}

func (t *memTx) FindBidByRank(_ context.Context, rank int) (models.Bid, bool, error) {
	bid, ok := t.bids[rank]
	return bid, ok, nil
}

func (t *memTx) SaveBid(_ context.Context, bid models.Bid) error {
	if bid.ID == "" {
		return fmt.Errorf("save bid: missing id")
	}
	t.bids[bid.Rank] = bid
	return nil
}

func (t *memTx) DeleteBid(_ context.Context, id string) error {
	for rank, bid := range t.bids {
		if bid.ID == id {
			delete(t.bids, rank)
			return nil
		}
	}
	return nil
}

func (t *memTx) DeleteBidsAtRank(_ context.Context, rank int) error {
	delete(t.bids, rank)
	return nil
}

func (t *memTx) SaveVoteRecord(_ context.Context, rec models.VoteRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("save vote record: missing id")
	}
	t.votes = append(t.votes, rec)
	return nil
}
