package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/trendlist/trendlist/internal/interfaces"
	"github.com/trendlist/trendlist/internal/models"
)

// Store implements interfaces.CatalogStore backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ interfaces.CatalogStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the catalog tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

// Update runs fn inside one database transaction; a failing step rolls the
// whole write set back.
func (s *Store) Update(ctx context.Context, fn func(tx interfaces.CatalogTx) error) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	if err = fn(&pgTx{tx: dbTx}); err != nil {
		return err
	}
	err = dbTx.Commit()
	return err
}

func (s *Store) CreateItem(ctx context.Context, item models.Item) (models.Item, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, name, keyword, vote_count, assigned_rank)
		VALUES ($1, $2, $3, $4, $5)
	`, item.ID, item.Name, item.Keyword, item.VoteCount, item.AssignedRank)
	if err != nil {
		return models.Item{}, err
	}
	return item, nil
}

func (s *Store) FindItem(ctx context.Context, id string) (models.Item, bool, error) {
	return scanItem(s.db.QueryRowContext(ctx, `
		SELECT id, name, keyword, vote_count, assigned_rank
		FROM items
		WHERE id = $1
	`, id))
}

func (s *Store) ListItems(ctx context.Context) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, keyword, vote_count, assigned_rank
		FROM items
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Keyword, &item.VoteCount, &item.AssignedRank); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) CountItems(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count)
	return count, err
}

func (s *Store) CreateAccount(ctx context.Context, account models.Account) (models.Account, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.Balance == 0 {
		account.Balance = models.DefaultVoteCredits
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, balance)
		VALUES ($1, $2, $3)
	`, account.ID, account.Name, account.Balance)
	if err != nil {
		return models.Account{}, err
	}
	return account, nil
}

func (s *Store) FindAccount(ctx context.Context, id string) (models.Account, bool, error) {
	return scanAccount(s.db.QueryRowContext(ctx, `
		SELECT id, name, balance
		FROM accounts
		WHERE id = $1
	`, id))
}

func (s *Store) FindBidByRank(ctx context.Context, rank int) (models.Bid, bool, error) {
	return scanBid(s.db.QueryRowContext(ctx, `
		SELECT id, item_id, rank, amount
		FROM bids
		WHERE rank = $1
	`, rank))
}

func (s *Store) ListVoteRecords(ctx context.Context) ([]models.VoteRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, item_id, amount, created_at
		FROM vote_records
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []models.VoteRecord
	for rows.Next() {
		var rec models.VoteRecord
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.ItemID, &rec.Amount, &rec.CreatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// pgTx implements interfaces.CatalogTx on top of a live *sql.Tx.
type pgTx struct {
	tx *sql.Tx
}

var _ interfaces.CatalogTx = (*pgTx)(nil)

func (t *pgTx) FindItem(ctx context.Context, id string) (models.Item, bool, error) {
	return scanItem(t.tx.QueryRowContext(ctx, `
		SELECT id, name, keyword, vote_count, assigned_rank
		FROM items
		WHERE id = $1
		FOR UPDATE
	`, id))
}

func (t *pgTx) SaveItem(ctx context.Context, item models.Item) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE items
		SET name = $2, keyword = $3, vote_count = $4, assigned_rank = $5
		WHERE id = $1
	`, item.ID, item.Name, item.Keyword, item.VoteCount, item.AssignedRank)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (t *pgTx) CountItems(ctx context.Context) (int, error) {
	var count int
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count)
	return count, err
}

func (t *pgTx) FindAccount(ctx context.Context, id string) (models.Account, bool, error) {
	return scanAccount(t.tx.QueryRowContext(ctx, `
		SELECT id, name, balance
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, id))
}

func (t *pgTx) SaveAccount(ctx context.Context, account models.Account) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE accounts
		SET name = $2, balance = $3
		WHERE id = $1
	`, account.ID, account.Name, account.Balance)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (t *pgTx) FindBidByRank(ctx context.Context, rank int) (models.Bid, bool, error) {
	return scanBid(t.tx.QueryRowContext(ctx, `
		SELECT id, item_id, rank, amount
		FROM bids
		WHERE rank = $1
		FOR UPDATE
	`, rank))
}

func (t *pgTx) SaveBid(ctx context.Context, bid models.Bid) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO bids (id, item_id, rank, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET item_id = EXCLUDED.item_id, rank = EXCLUDED.rank, amount = EXCLUDED.amount
	`, bid.ID, bid.ItemID, bid.Rank, bid.Amount)
	return err
}

func (t *pgTx) DeleteBid(ctx context.Context, id string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM bids WHERE id = $1`, id)
	return err
}

func (t *pgTx) DeleteBidsAtRank(ctx context.Context, rank int) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM bids WHERE rank = $1`, rank)
	return err
}

func (t *pgTx) SaveVoteRecord(ctx context.Context, rec models.VoteRecord) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO vote_records (id, account_id, item_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.ID, rec.AccountID, rec.ItemID, rec.Amount, rec.CreatedAt)
	return err
}

func scanItem(row *sql.Row) (models.Item, bool, error) {
	var item models.Item
	err := row.Scan(&item.ID, &item.Name, &item.Keyword, &item.VoteCount, &item.AssignedRank)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Item{}, false, nil
	}
	if err != nil {
		return models.Item{}, false, err
	}
	return item, true, nil
}

func scanAccount(row *sql.Row) (models.Account, bool, error) {
	var account models.Account
	err := row.Scan(&account.ID, &account.Name, &account.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, false, nil
	}
	if err != nil {
		return models.Account{}, false, err
	}
	return account, true, nil
}

func scanBid(row *sql.Row) (models.Bid, bool, error) {
	var bid models.Bid
	err := row.Scan(&bid.ID, &bid.ItemID, &bid.Rank, &bid.Amount)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Bid{}, false, nil
	}
	if err != nil {
		return models.Bid{}, false, err
	}
	return bid, true, nil
}
