// Package trading applies trade operations to an account. Every mutating
// call builds one account.Txn, applies it to a copy of the account, writes
// it through the journal, and only then makes the copy current.
package trading

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/optfolio/account"
	"github.com/rustyeddy/optfolio/internal/id"
	"github.com/rustyeddy/optfolio/journal"
	"github.com/rustyeddy/optfolio/ledger"
	"github.com/rustyeddy/optfolio/position"
	"github.com/rustyeddy/optfolio/pricing"
)

// DefaultCommission is charged on synthesized stock legs when
// Config.DefaultCommission is nil.
const DefaultCommission = 1.0

// Observer is told about every applied or rejected operation.
type Observer interface {
	Applied(tx account.Txn, b account.Balances)
	Rejected(op string, err error)
}

type Config struct {
	Journal           journal.Journal
	Oracle            pricing.Oracle
	PriceTimeout      time.Duration
	DefaultPrice      float64
	DefaultCommission *float64 // nil means DefaultCommission; zero is honored
	Log               zerolog.Logger
	Observer          Observer

	Now   func() time.Time
	NewID func() string
}

type Engine struct {
	mu   sync.Mutex
	acct *account.Account // replaced, never mutated

	journal    journal.Journal
	prices     *pricing.Fallback
	commission float64
	log        zerolog.Logger
	obs        Observer
	now        func() time.Time
	newID      func() string
}

func NewEngine(acct *account.Account, cfg Config) *Engine {
	if cfg.Journal == nil {
		cfg.Journal = journal.Discard{}
	}
	if cfg.Oracle == nil {
		cfg.Oracle = pricing.NewStatic(nil)
	}
	commission := DefaultCommission
	if c := cfg.DefaultCommission; c != nil && nonNegative(*c) {
		commission = *c
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = id.New
	}
	log := cfg.Log.With().Str("component", "trading").Logger()

	return &Engine{
		acct:    acct,
		journal: cfg.Journal,
		prices: pricing.NewFallback(cfg.Oracle, pricing.FallbackConfig{
			Timeout: cfg.PriceTimeout,
			Default: cfg.DefaultPrice,
			Log:     cfg.Log,
		}),
		commission: commission,
		log:        log,
		obs:        cfg.Observer,
		now:        cfg.Now,
		newID:      cfg.NewID,
	}
}

// Open restores an engine from its journal. A journal that has never been
// committed to is initialized with seed.
func Open(ctx context.Context, cfg Config, seed account.Balances) (*Engine, error) {
	if cfg.Journal == nil {
		cfg.Journal = journal.Discard{}
	}

	trades, err := cfg.Journal.Trades(ctx)
	if err != nil {
		return nil, fmt.Errorf("open: load trades: %w", err)
	}
	b, ok, err := cfg.Journal.Balances(ctx)
	if err != nil {
		return nil, fmt.Errorf("open: load balances: %w", err)
	}
	if !ok {
		b = seed
		if err := cfg.Journal.Commit(ctx, account.Txn{Op: "init"}, b); err != nil {
			return nil, fmt.Errorf("open: seed balances: %w", err)
		}
	}

	acct, err := account.New(trades, b)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return NewEngine(acct, cfg), nil
}

func (e *Engine) snapshot() *account.Account {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acct
}

// apply runs build against the current account under the lock and commits
// the resulting txn. Nothing changes unless the journal accepts the txn.
func (e *Engine) apply(ctx context.Context, op string, build func(a *account.Account) (account.Txn, error)) (account.Txn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := build(e.acct)
	if err != nil {
		e.reject(op, err)
		return account.Txn{}, err
	}
	tx.Op = op

	next, err := e.acct.Apply(tx)
	if err != nil {
		e.reject(op, err)
		return account.Txn{}, err
	}
	if err := e.journal.Commit(ctx, tx, next.Balances); err != nil {
		e.log.Error().Err(err).Str("op", op).Msg("Journal commit failed")
		return account.Txn{}, fmt.Errorf("%s: %w", op, err)
	}
	e.acct = next

	e.log.Info().
		Str("op", op).
		Strs("trades", txnTradeIDs(tx)).
		Float64("cash_delta", tx.CashDelta).
		Float64("locked_delta", tx.LockedDelta).
		Float64("cash", next.Balances.Cash).
		Msg("Applied")
	if e.obs != nil {
		e.obs.Applied(tx, next.Balances)
	}
	return tx, nil
}

func (e *Engine) reject(op string, err error) {
	e.log.Warn().Err(err).Str("op", op).Msg("Rejected")
	if e.obs != nil {
		e.obs.Rejected(op, err)
	}
}

func txnTradeIDs(tx account.Txn) []string {
	ids := make([]string, 0, len(tx.Remove)+len(tx.Replace)+len(tx.Append))
	ids = append(ids, tx.Remove...)
	for _, t := range tx.Replace {
		ids = append(ids, t.ID)
	}
	for _, t := range tx.Append {
		ids = append(ids, t.ID)
	}
	return ids
}

// noPrices is used where only share counts matter.
var noPrices = pricing.OracleFunc(func(context.Context, string) (float64, error) {
	return 0, pricing.ErrNoPrice
})

func (e *Engine) propose(ctx context.Context, a *account.Account, form TradeForm) (TradeSummary, error) {
	if form.StartDate.IsZero() {
		form.StartDate = e.now()
	}
	ps := position.Aggregate(ctx, a.Ledger.All(), noPrices)
	quote := func(symbol string) float64 {
		p, _ := e.prices.Quote(ctx, symbol)
		return p
	}
	return proposeTrade(form, ps, a.Balances.Cash, quote, e.commission)
}

// Propose computes what opening a trade would do. Nothing is written.
func (e *Engine) Propose(ctx context.Context, form TradeForm) (TradeSummary, error) {
	s, err := e.propose(ctx, e.snapshot(), form)
	if err != nil {
		e.reject("propose", err)
	}
	return s, err
}

// Confirm records a proposed trade. The summary is re-derived from its form
// against the account as it is now, so a stale summary cannot overdraw.
func (e *Engine) Confirm(ctx context.Context, s TradeSummary) ([]ledger.Trade, error) {
	tx, err := e.apply(ctx, "confirm", func(a *account.Account) (account.Txn, error) {
		fresh, err := e.propose(ctx, a, s.Form)
		if err != nil {
			return account.Txn{}, err
		}
		return confirmTxn(fresh, e.newID), nil
	})
	if err != nil {
		return nil, err
	}
	return tx.Append, nil
}

// Add proposes and confirms in one step.
func (e *Engine) Add(ctx context.Context, form TradeForm) ([]ledger.Trade, error) {
	return e.Confirm(ctx, TradeSummary{Form: form})
}

func (e *Engine) Close(ctx context.Context, req CloseRequest) (ActionSummary, error) {
	var sum ActionSummary
	_, err := e.apply(ctx, "close", func(a *account.Account) (account.Txn, error) {
		tx, s, err := closeTxn(a, req, e.newID)
		sum = s
		return tx, err
	})
	sum.Op = "close"
	return sum, err
}

func (e *Engine) Assign(ctx context.Context, tradeID string, commission float64) (ActionSummary, error) {
	var sum ActionSummary
	_, err := e.apply(ctx, "assign", func(a *account.Account) (account.Txn, error) {
		tx, s, err := assignTxn(a, tradeID, commission, e.newID, e.now())
		sum = s
		return tx, err
	})
	sum.Op = "assign"
	return sum, err
}

func (e *Engine) Roll(ctx context.Context, req RollRequest) (ActionSummary, error) {
	var sum ActionSummary
	_, err := e.apply(ctx, "roll", func(a *account.Account) (account.Txn, error) {
		tx, s, err := rollTxn(a, req, e.newID, e.now())
		sum = s
		return tx, err
	})
	sum.Op = "roll"
	return sum, err
}

// Remove deletes a trade after reversing its recorded cash flow.
func (e *Engine) Remove(ctx context.Context, tradeID string) (ActionSummary, error) {
	var sum ActionSummary
	_, err := e.apply(ctx, "remove", func(a *account.Account) (account.Txn, error) {
		tx, s, err := removeTxn(a, tradeID)
		sum = s
		return tx, err
	})
	sum.Op = "remove"
	return sum, err
}

func (e *Engine) ProposeEdit(ctx context.Context, tradeID string, form EditForm) (EditSummary, error) {
	_, s, err := editTxn(e.snapshot(), tradeID, form)
	if err != nil {
		e.reject("propose-edit", err)
	}
	return s, err
}

// ConfirmEdit re-derives the edit against the current account and applies it.
func (e *Engine) ConfirmEdit(ctx context.Context, s EditSummary) (EditSummary, error) {
	var out EditSummary
	_, err := e.apply(ctx, "edit", func(a *account.Account) (account.Txn, error) {
		tx, fresh, err := editTxn(a, s.TradeID, s.Form)
		out = fresh
		return tx, err
	})
	return out, err
}

func (e *Engine) Edit(ctx context.Context, tradeID string, form EditForm) (EditSummary, error) {
	return e.ConfirmEdit(ctx, EditSummary{TradeID: tradeID, Form: form})
}

// CashTransaction deposits or withdraws cash. A non-positive or non-finite
// amount does nothing and returns a zero trade.
func (e *Engine) CashTransaction(ctx context.Context, action CashAction, amount float64) (ledger.Trade, error) {
	if !positive(amount) {
		e.log.Debug().Str("action", string(action)).Float64("amount", amount).Msg("Ignoring cash amount")
		return ledger.Trade{}, nil
	}
	var t ledger.Trade
	_, err := e.apply(ctx, "cash-"+string(action), func(a *account.Account) (account.Txn, error) {
		tx, trade, err := cashTxn(a, action, amount, e.newID, e.now())
		t = trade
		return tx, err
	})
	if err != nil {
		return ledger.Trade{}, err
	}
	return t, nil
}

// Import appends trades read from an export in one txn. Trades without an
// id get a new one. Closing cash flows of closed trades are not replayed.
func (e *Engine) Import(ctx context.Context, trades []ledger.Trade) ([]ledger.Trade, error) {
	if len(trades) == 0 {
		return nil, nil
	}
	tx, err := e.apply(ctx, "import", func(a *account.Account) (account.Txn, error) {
		return importTxn(a, trades, e.newID)
	})
	if err != nil {
		return nil, err
	}
	return tx.Append, nil
}

// Expire marks one open option expired.
func (e *Engine) Expire(ctx context.Context, tradeID string) (ActionSummary, error) {
	var sum ActionSummary
	_, err := e.apply(ctx, "expire", func(a *account.Account) (account.Txn, error) {
		t, err := openTrade(a, tradeID)
		if err != nil {
			return account.Txn{}, err
		}
		if !t.IsOption() {
			return account.Txn{}, fmt.Errorf("%w: only options expire", ErrInvalidTrade)
		}
		tx, s := expireTxn([]ledger.Trade{t})
		sum = s
		return tx, nil
	})
	sum.Op = "expire"
	return sum, err
}

// ExpireDue expires every open option whose expiration day ended before
// asOf, in a single txn. It returns the expired trades.
func (e *Engine) ExpireDue(ctx context.Context, asOf time.Time) ([]ledger.Trade, error) {
	if len(dueForExpiry(e.snapshot(), asOf)) == 0 {
		return nil, nil
	}
	var sum ActionSummary
	_, err := e.apply(ctx, "expire-due", func(a *account.Account) (account.Txn, error) {
		due := dueForExpiry(a, asOf)
		if len(due) == 0 {
			return account.Txn{}, nil
		}
		tx, s := expireTxn(due)
		sum = s
		return tx, nil
	})
	if err != nil {
		return nil, err
	}
	return sum.Trades, nil
}

// SetPortfolioValue records the externally supplied portfolio value.
func (e *Engine) SetPortfolioValue(ctx context.Context, v float64) error {
	if !nonNegative(v) {
		err := fmt.Errorf("%w: portfolio value must be a non-negative number", ErrInvalidAmount)
		e.reject("portfolio-value", err)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.acct.Clone()
	next.Balances.PortfolioValue = ledger.Cents(v)
	if err := e.journal.Commit(ctx, account.Txn{Op: "portfolio-value"}, next.Balances); err != nil {
		return fmt.Errorf("portfolio-value: %w", err)
	}
	e.acct = next
	e.log.Info().Float64("portfolio_value", next.Balances.PortfolioValue).Msg("Portfolio value set")
	if e.obs != nil {
		e.obs.Applied(account.Txn{Op: "portfolio-value"}, next.Balances)
	}
	return nil
}

// Positions aggregates the whole ledger with current prices.
func (e *Engine) Positions(ctx context.Context) position.Positions {
	return position.Aggregate(ctx, e.snapshot().Ledger.All(), e.prices)
}

func (e *Engine) Balances() account.Balances {
	return e.snapshot().Balances
}

func (e *Engine) Trades() []ledger.Trade {
	return e.snapshot().Ledger.All()
}

func (e *Engine) Trade(tradeID string) (ledger.Trade, error) {
	t, ok := e.snapshot().Ledger.Get(tradeID)
	if !ok {
		return ledger.Trade{}, fmt.Errorf("trade %q: %w", tradeID, ErrNotFound)
	}
	return t, nil
}

// PremiumCollected is the positive STO premium opened inside tf.
func (e *Engine) PremiumCollected(tf ledger.Timeframe) float64 {
	return ledger.PremiumCollected(e.Trades(), tf, e.now())
}

// Expiring lists open options expiring within days.
func (e *Engine) Expiring(days int) []ledger.Trade {
	now := e.now()
	var out []ledger.Trade
	for _, t := range e.Trades() {
		if t.IsOpen() && t.IsOption() && ledger.ExpiringWithin(t, now, days) {
			out = append(out, t)
		}
	}
	return out
}

// Quote returns the price the engine would use for symbol and whether it
// is fresh.
func (e *Engine) Quote(ctx context.Context, symbol string) (float64, bool) {
	return e.prices.Quote(ctx, symbol)
}
