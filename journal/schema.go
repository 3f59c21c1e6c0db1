// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	trade_id TEXT NOT NULL UNIQUE,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	type TEXT NOT NULL,
	start_date TEXT NOT NULL,
	expiration_date TEXT NOT NULL DEFAULT '',
	strike REAL NOT NULL DEFAULT 0,
	price REAL NOT NULL,
	contracts REAL NOT NULL,
	status TEXT NOT NULL,
	premium REAL NOT NULL,
	commission REAL NOT NULL,
	covered INTEGER NOT NULL DEFAULT 0,
	secured INTEGER NOT NULL DEFAULT 0,
	closing_price REAL NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS balances (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	cash REAL NOT NULL,
	locked_collateral REAL NOT NULL,
	premium_collected REAL NOT NULL,
	portfolio_value REAL NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS txns (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	op TEXT NOT NULL,
	trade_ids TEXT NOT NULL,
	cash_delta REAL NOT NULL,
	locked_delta REAL NOT NULL,
	premium_delta REAL NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
`
