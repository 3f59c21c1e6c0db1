package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/optfolio/account"
	"github.com/rustyeddy/optfolio/ledger"
)

type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers anyway; one connection keeps :memory: usable.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db, now: time.Now}, nil
}

const tradeColumns = `trade_id, symbol, side, type, start_date, expiration_date, strike, price,
	contracts, status, premium, commission, covered, secured, closing_price, notes`

func (j *SQLite) Commit(ctx context.Context, tx account.Txn, b account.Balances) (err error) {
	stx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit %s: %w", tx.Op, err)
	}
	defer func() {
		if err != nil {
			_ = stx.Rollback()
		}
	}()

	var ids []string
	for _, id := range tx.Remove {
		if _, err = stx.ExecContext(ctx, `DELETE FROM trades WHERE trade_id = ?`, id); err != nil {
			return fmt.Errorf("commit %s: remove %s: %w", tx.Op, id, err)
		}
		ids = append(ids, id)
	}
	for _, t := range tx.Replace {
		if err = updateTrade(ctx, stx, t); err != nil {
			return fmt.Errorf("commit %s: replace %s: %w", tx.Op, t.ID, err)
		}
		ids = append(ids, t.ID)
	}
	for _, t := range tx.Append {
		if err = insertTrade(ctx, stx, t); err != nil {
			return fmt.Errorf("commit %s: append %s: %w", tx.Op, t.ID, err)
		}
		ids = append(ids, t.ID)
	}

	now := j.now().UTC().Format(time.RFC3339Nano)
	if _, err = stx.ExecContext(ctx, `
		INSERT INTO balances (id, cash, locked_collateral, premium_collected, portfolio_value, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cash = excluded.cash,
			locked_collateral = excluded.locked_collateral,
			premium_collected = excluded.premium_collected,
			portfolio_value = excluded.portfolio_value,
			updated_at = excluded.updated_at`,
		b.Cash, b.LockedCollateral, b.PremiumCollected, b.PortfolioValue, now,
	); err != nil {
		return fmt.Errorf("commit %s: balances: %w", tx.Op, err)
	}

	if _, err = stx.ExecContext(ctx, `
		INSERT INTO txns (op, trade_ids, cash_delta, locked_delta, premium_delta, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tx.Op, strings.Join(ids, ","), tx.CashDelta, tx.LockedDelta, tx.PremiumDelta, now,
	); err != nil {
		return fmt.Errorf("commit %s: txn log: %w", tx.Op, err)
	}

	if err = stx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", tx.Op, err)
	}
	return nil
}

func insertTrade(ctx context.Context, stx *sql.Tx, t ledger.Trade) error {
	_, err := stx.ExecContext(ctx, `
		INSERT INTO trades (`+tradeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Symbol, string(t.Side), string(t.Type), formatTime(t.StartDate), formatTime(t.ExpirationDate),
		t.Strike, t.Price, t.Contracts, string(t.Status), t.Premium, t.Commission,
		t.Covered, t.Secured, t.ClosingPrice, t.Notes,
	)
	return err
}

func updateTrade(ctx context.Context, stx *sql.Tx, t ledger.Trade) error {
	res, err := stx.ExecContext(ctx, `
		UPDATE trades SET
			symbol = ?, side = ?, type = ?, start_date = ?, expiration_date = ?, strike = ?, price = ?,
			contracts = ?, status = ?, premium = ?, commission = ?, covered = ?, secured = ?,
			closing_price = ?, notes = ?
		WHERE trade_id = ?`,
		t.Symbol, string(t.Side), string(t.Type), formatTime(t.StartDate), formatTime(t.ExpirationDate),
		t.Strike, t.Price, t.Contracts, string(t.Status), t.Premium, t.Commission,
		t.Covered, t.Secured, t.ClosingPrice, t.Notes, t.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// Trades returns every stored trade in ledger order.
func (j *SQLite) Trades(ctx context.Context) ([]ledger.Trade, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT `+tradeColumns+` FROM trades ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTrade returns a single trade by ID.
func (j *SQLite) GetTrade(ctx context.Context, tradeID string) (ledger.Trade, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE trade_id = ?`, tradeID)
	t, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Trade{}, fmt.Errorf("trade %q: %w", tradeID, ledger.ErrNotFound)
	}
	return t, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (ledger.Trade, error) {
	var (
		t                 ledger.Trade
		side, typ, status string
		start, expiration string
		covered, secured  bool
	)
	err := s.Scan(
		&t.ID, &t.Symbol, &side, &typ, &start, &expiration,
		&t.Strike, &t.Price, &t.Contracts, &status, &t.Premium, &t.Commission,
		&covered, &secured, &t.ClosingPrice, &t.Notes,
	)
	if err != nil {
		return ledger.Trade{}, err
	}

	t.Side = ledger.Side(side)
	t.Type = ledger.Type(typ)
	t.Status = ledger.Status(status)
	t.Covered = covered
	t.Secured = secured
	if t.StartDate, err = parseTime(start); err != nil {
		return ledger.Trade{}, fmt.Errorf("trade %s start_date: %w", t.ID, err)
	}
	if t.ExpirationDate, err = parseTime(expiration); err != nil {
		return ledger.Trade{}, fmt.Errorf("trade %s expiration_date: %w", t.ID, err)
	}
	return t, nil
}

func (j *SQLite) Balances(ctx context.Context) (account.Balances, bool, error) {
	var b account.Balances
	err := j.db.QueryRowContext(ctx, `
		SELECT cash, locked_collateral, premium_collected, portfolio_value
		FROM balances WHERE id = 1`).
		Scan(&b.Cash, &b.LockedCollateral, &b.PremiumCollected, &b.PortfolioValue)
	if errors.Is(err, sql.ErrNoRows) {
		return account.Balances{}, false, nil
	}
	if err != nil {
		return account.Balances{}, false, err
	}
	return b, true, nil
}

// TxnRecord is one row of the commit log.
type TxnRecord struct {
	Seq          int64     `json:"seq"`
	Op           string    `json:"op"`
	TradeIDs     []string  `json:"trade_ids"`
	CashDelta    float64   `json:"cash_delta"`
	LockedDelta  float64   `json:"locked_delta"`
	PremiumDelta float64   `json:"premium_delta"`
	CreatedAt    time.Time `json:"created_at"`
}

// History returns the most recent commits, newest first. limit <= 0 means all.
func (j *SQLite) History(ctx context.Context, limit int) ([]TxnRecord, error) {
	q := `SELECT seq, op, trade_ids, cash_delta, locked_delta, premium_delta, created_at
		FROM txns ORDER BY seq DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TxnRecord
	for rows.Next() {
		var (
			rec       TxnRecord
			ids, when string
		)
		if err := rows.Scan(&rec.Seq, &rec.Op, &ids, &rec.CashDelta, &rec.LockedDelta, &rec.PremiumDelta, &when); err != nil {
			return nil, err
		}
		if ids != "" {
			rec.TradeIDs = strings.Split(ids, ",")
		}
		if rec.CreatedAt, err = parseTime(when); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
