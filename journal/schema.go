// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS days (
	account TEXT NOT NULL,
	date TEXT NOT NULL,
	total_value REAL NOT NULL,
	cash_value REAL NOT NULL,
	stock_value REAL NOT NULL,
	profit_rate REAL NOT NULL,
	profit_rate_pct TEXT NOT NULL,
	row_count INTEGER NOT NULL,
	averages TEXT NOT NULL,
	PRIMARY KEY (account, date)
);

CREATE TABLE IF NOT EXISTS holdings (
	account TEXT NOT NULL,
	date TEXT NOT NULL,
	row_idx INTEGER NOT NULL,
	code TEXT NOT NULL,
	name TEXT NOT NULL,
	current_value REAL NOT NULL,
	opening_price REAL NOT NULL,
	closing_price REAL NOT NULL,
	buy_in_price REAL NOT NULL,
	profit REAL NOT NULL,
	profit_rate REAL NOT NULL,
	profit_rate_pct TEXT NOT NULL,
	PRIMARY KEY (account, date, code)
);

CREATE TABLE IF NOT EXISTS snapshots (
	account TEXT PRIMARY KEY,
	date TEXT NOT NULL,
	data BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	account TEXT NOT NULL,
	overlay INTEGER NOT NULL,
	started DATETIME NOT NULL,
	finished DATETIME NOT NULL,
	first_day TEXT NOT NULL,
	last_day TEXT NOT NULL,
	days INTEGER NOT NULL,
	start_value REAL NOT NULL,
	end_value REAL NOT NULL,
	profit_rate REAL NOT NULL,
	max_drawdown REAL NOT NULL,
	buys INTEGER NOT NULL,
	sells INTEGER NOT NULL,
	reductions INTEGER NOT NULL,
	skipped INTEGER NOT NULL,
	org_path TEXT NOT NULL DEFAULT '',
	chart_png TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_holdings_day ON holdings(account, date);
`
