package interfaces

import (
	"context"

	"github.com/trendlist/trendlist/internal/models"
)

// CatalogTx is the view of the catalog inside one atomic unit of work. Reads
// observe a consistent snapshot that includes the transaction's own writes;
// writes become visible to other callers only if the whole unit commits.
type CatalogTx interface {
	FindItem(ctx context.Context, id string) (models.Item, bool, error)
	SaveItem(ctx context.Context, item models.Item) error
	CountItems(ctx context.Context) (int, error)

	FindAccount(ctx context.Context, id string) (models.Account, bool, error)
	SaveAccount(ctx context.Context, account models.Account) error

	FindBidByRank(ctx context.Context, rank int) (models.Bid, bool, error)
	SaveBid(ctx context.Context, bid models.Bid) error
	DeleteBid(ctx context.Context, id string) error
	DeleteBidsAtRank(ctx context.Context, rank int) error

	SaveVoteRecord(ctx context.Context, rec models.VoteRecord) error
}

// CatalogStore persists accounts, items, bids and vote records. Absence on
// the Find methods is reported through the bool, not an error; errors mean
// the store itself failed.
type CatalogStore interface {
	// Update runs fn as one atomic transaction. If fn returns an error the
	// transaction is rolled back and no write is observable.
	Update(ctx context.Context, fn func(tx CatalogTx) error) error

	CreateItem(ctx context.Context, item models.Item) (models.Item, error)
	FindItem(ctx context.Context, id string) (models.Item, bool, error)
	ListItems(ctx context.Context) ([]models.Item, error)
	CountItems(ctx context.Context) (int, error)

	CreateAccount(ctx context.Context, account models.Account) (models.Account, error)
	FindAccount(ctx context.Context, id string) (models.Account, bool, error)

	FindBidByRank(ctx context.Context, rank int) (models.Bid, bool, error)
	ListVoteRecords(ctx context.Context) ([]models.VoteRecord, error)
}
