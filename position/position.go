// Package position folds a trade ledger into per-symbol positions. Positions
// are never authoritative; they are rebuilt from the full ledger on every read.
package position

import (
	"context"

	"github.com/rustyeddy/optfolio/ledger"
)

// PriceOracle is the single capability aggregation needs from market data.
type PriceOracle interface {
	Lookup(ctx context.Context, symbol string) (float64, error)
}

// Quoter is an oracle that always has a price but says whether it is fresh.
// Aggregate prefers it over Lookup when the oracle offers both.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (price float64, fresh bool)
}

func currentPrice(ctx context.Context, oracle PriceOracle, symbol string) (price float64, stale bool) {
	if q, ok := oracle.(Quoter); ok {
		price, fresh := q.Quote(ctx, symbol)
		return price, !fresh
	}
	price, err := oracle.Lookup(ctx, symbol)
	if err != nil {
		return 0, true
	}
	return price, false
}

type Position struct {
	Symbol            string         `json:"symbol"`
	Shares            float64        `json:"shares"`
	AvgCostBasis      float64        `json:"avg_cost_basis"`
	OriginalCostBasis float64        `json:"original_cost_basis"`
	PremiumsReceived  float64        `json:"premiums_received"`
	OpenOptions       []ledger.Trade `json:"open_options"`
	CurrentPrice      float64        `json:"current_price"`
	ProposedCostBasis float64        `json:"proposed_cost_basis,omitempty"`
	PriceStale        bool           `json:"price_stale,omitempty"`
}

// StockPL is the unrealized gain on a long stock holding.
func (p Position) StockPL() float64 {
	if p.Shares <= 0 {
		return 0
	}
	return (p.CurrentPrice - p.AvgCostBasis) * p.Shares
}

// TotalPL is stock P/L plus every STO premium taken on the symbol.
func (p Position) TotalPL() float64 {
	return p.StockPL() + p.PremiumsReceived
}

func (p Position) MarketValue() float64 {
	return p.Shares * p.CurrentPrice
}

// Positions is an ordered symbol-to-position mapping. Order is the order in
// which symbols first appear in the ledger.
type Positions struct {
	order    []string
	bySymbol map[string]*Position
}

func (ps Positions) Get(symbol string) (Position, bool) {
	p, ok := ps.bySymbol[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Shares returns the net share count for symbol, zero when not held.
func (ps Positions) Shares(symbol string) float64 {
	if p, ok := ps.bySymbol[symbol]; ok {
		return p.Shares
	}
	return 0
}

func (ps Positions) All() []Position {
	out := make([]Position, 0, len(ps.order))
	for _, sym := range ps.order {
		out = append(out, *ps.bySymbol[sym])
	}
	return out
}

func (ps Positions) Symbols() []string {
	out := make([]string, len(ps.order))
	copy(out, ps.order)
	return out
}

func (ps Positions) Len() int { return len(ps.order) }

func (ps Positions) TotalPL() float64 {
	var total float64
	for _, sym := range ps.order {
		total += ps.bySymbol[sym].TotalPL()
	}
	return total
}

// Aggregate replays trades in ledger order. Order matters: the average cost
// basis is a running volume-weighted mean.
func Aggregate(ctx context.Context, trades []ledger.Trade, oracle PriceOracle) Positions {
	ps := Positions{bySymbol: make(map[string]*Position)}

	for _, t := range trades {
		if t.IsCash() {
			continue
		}

		p, ok := ps.bySymbol[t.Symbol]
		if !ok {
			p = &Position{Symbol: t.Symbol, OpenOptions: []ledger.Trade{}}
			p.CurrentPrice, p.PriceStale = currentPrice(ctx, oracle, t.Symbol)
			ps.bySymbol[t.Symbol] = p
			ps.order = append(ps.order, t.Symbol)
		}

		switch {
		case t.Type == ledger.Stock && t.IsOpen():
			applyStock(p, t)
		case t.Type != ledger.Stock:
			if t.IsOpen() {
				p.OpenOptions = append(p.OpenOptions, t)
			}
			if t.Side == ledger.STO {
				p.PremiumsReceived += t.Premium
			}
		}

		if t.Type == ledger.Put && t.Side == ledger.STO && t.IsOpen() && t.Strike > 0 {
			p.ProposedCostBasis = t.Strike - t.Price
		}
	}

	return ps
}

func applyStock(p *Position, t ledger.Trade) {
	after := p.Shares + t.Contracts
	if after == 0 {
		p.Shares = 0
		p.AvgCostBasis = 0
		p.OriginalCostBasis = 0
		return
	}

	p.AvgCostBasis = (p.Shares*p.AvgCostBasis + t.Contracts*t.Price) / after
	p.Shares = after
	if t.Contracts > 0 {
		p.OriginalCostBasis += t.Contracts * t.Price
	}
}
