package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	rule TEXT NOT NULL,
	side TEXT NOT NULL,
	qty REAL NOT NULL,
	entry_price REAL NOT NULL,
	stop_loss REAL NOT NULL,
	take_profit REAL NOT NULL,
	opened_at DATETIME NOT NULL,
	secured INTEGER NOT NULL DEFAULT 0,
	secured_at DATETIME,
	exit_price REAL,
	closed_at DATETIME,
	pnl REAL,
	exit_label TEXT
);

CREATE INDEX IF NOT EXISTS idx_trades_open ON trades(closed_at) WHERE closed_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol, rule);
`
