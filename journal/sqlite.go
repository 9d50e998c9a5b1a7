package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lxalgo/riskcore/gateway"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordOpen(r OpenRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, symbol, rule, side, qty, entry_price, stop_loss, take_profit, opened_at, secured)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.TradeID, r.Symbol, r.Rule, r.Side.String(), r.Qty,
		r.EntryPrice, r.StopLoss, r.TakeProfit, r.OpenedAt.UTC(), boolInt(r.Secured),
	)
	if err != nil {
		return fmt.Errorf("record open %s: %w", r.TradeID, err)
	}
	return nil
}

// RecordSecured marks the row secured. COALESCE keeps the first stamp
// if the call is ever repeated for the same trade.
func (j *SQLiteJournal) RecordSecured(tradeID string, at time.Time) error {
	_, err := j.db.Exec(`
		UPDATE trades SET secured = 1, secured_at = COALESCE(secured_at, ?)
		WHERE trade_id = ?`, at.UTC(), tradeID)
	if err != nil {
		return fmt.Errorf("record secured %s: %w", tradeID, err)
	}
	return nil
}

func (j *SQLiteJournal) RecordClose(r CloseRecord) error {
	_, err := j.db.Exec(`
		UPDATE trades SET exit_price = ?, closed_at = ?, pnl = ?, exit_label = ?
		WHERE trade_id = ?`,
		r.ExitPrice, r.ClosedAt.UTC(), r.PnL, r.Label, r.TradeID,
	)
	if err != nil {
		return fmt.Errorf("record close %s: %w", r.TradeID, err)
	}
	return nil
}

// OpenTrades returns every row without a close timestamp, oldest first.
// Called once at startup to rebuild the ledger.
func (j *SQLiteJournal) OpenTrades() ([]OpenRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, symbol, rule, side, qty, entry_price, stop_loss, take_profit, opened_at, secured, secured_at
		FROM trades WHERE closed_at IS NULL ORDER BY trade_id`)
	if err != nil {
		return nil, fmt.Errorf("query open trades: %w", err)
	}
	defer rows.Close()

	var out []OpenRecord
	for rows.Next() {
		var r OpenRecord
		var side string
		var secured int
		var securedAt sql.NullTime
		if err := rows.Scan(&r.TradeID, &r.Symbol, &r.Rule, &side, &r.Qty,
			&r.EntryPrice, &r.StopLoss, &r.TakeProfit, &r.OpenedAt, &secured, &securedAt); err != nil {
			return nil, fmt.Errorf("scan open trade: %w", err)
		}
		if side == "short" {
			r.Side = gateway.Short
		}
		r.Secured = secured != 0
		if securedAt.Valid {
			r.SecuredAt = securedAt.Time
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
