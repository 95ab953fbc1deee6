package postgres

// Schema holds the DDL for the catalog tables. The balance CHECK and the
// UNIQUE rank constraint back the ledger invariants at the database level,
// even across processes.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL DEFAULT '',
	balance INTEGER NOT NULL DEFAULT 10 CHECK (balance >= 0)
);

CREATE TABLE IF NOT EXISTS items (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	keyword       TEXT NOT NULL DEFAULT '',
	vote_count    INTEGER NOT NULL DEFAULT 0,
	assigned_rank INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS bids (
	id      TEXT PRIMARY KEY,
	item_id TEXT NOT NULL REFERENCES items (id) ON DELETE CASCADE,
	rank    INTEGER NOT NULL UNIQUE,
	amount  NUMERIC(20, 8) NOT NULL
);

CREATE TABLE IF NOT EXISTS vote_records (
	id         TEXT PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
	item_id    TEXT NOT NULL REFERENCES items (id) ON DELETE CASCADE,
	amount     INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`
