package catalog

import (
	"context"

	"github.com/trendlist/trendlist/internal/interfaces"
	"github.com/trendlist/trendlist/internal/models"
)

// Service is the read side of the catalog: listings and balances for
// display. All mutation goes through the voting ledger and the rank
// allocator; this service only observes committed state.
type Service struct {
	store interfaces.CatalogStore
}

func NewService(store interfaces.CatalogStore) *Service {
	return &Service{store: store}
}

func (s *Service) ListItems(ctx context.Context) ([]models.Item, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, Transient("list items", err)
	}
	return items, nil
}

func (s *Service) GetItem(ctx context.Context, id string) (models.Item, error) {
	item, ok, err := s.store.FindItem(ctx, id)
	if err != nil {
		return models.Item{}, Transient("get item", err)
	}
	if !ok {
		return models.Item{}, ErrItemNotFound
	}
	return item, nil
}

// Balance reports the account's remaining vote credits.
func (s *Service) Balance(ctx context.Context, accountID string) (int, error) {
	account, ok, err := s.store.FindAccount(ctx, accountID)
	if err != nil {
		return 0, Transient("balance", err)
	}
	if !ok {
		return 0, ErrAccountNotFound
	}
	return account.Balance, nil
}

func (s *Service) VoteRecords(ctx context.Context) ([]models.VoteRecord, error) {
	recs, err := s.store.ListVoteRecords(ctx)
	if err != nil {
		return nil, Transient("vote records", err)
	}
	return recs, nil
}
