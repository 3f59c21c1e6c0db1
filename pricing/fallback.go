package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPrice is used when a symbol has never been quoted successfully.
const DefaultPrice = 100.0

// Fallback wraps an oracle so lookups never fail: each call is bounded by
// Timeout, and on error the last known price (or Default) is returned.
type Fallback struct {
	src     Oracle
	timeout time.Duration
	def     float64
	log     zerolog.Logger

	mu        sync.RWMutex
	lastKnown map[string]float64
}

type FallbackConfig struct {
	Timeout time.Duration
	Default float64
	Log     zerolog.Logger
}

func NewFallback(src Oracle, cfg FallbackConfig) *Fallback {
	def := cfg.Default
	if def <= 0 {
		def = DefaultPrice
	}
	return &Fallback{
		src:       src,
		timeout:   cfg.Timeout,
		def:       def,
		log:       cfg.Log.With().Str("component", "pricing").Logger(),
		lastKnown: make(map[string]float64),
	}
}

// Lookup satisfies Oracle and never returns an error.
func (f *Fallback) Lookup(ctx context.Context, symbol string) (float64, error) {
	p, _ := f.Quote(ctx, symbol)
	return p, nil
}

// Quote returns a price and whether it came fresh from the source.
func (f *Fallback) Quote(ctx context.Context, symbol string) (price float64, fresh bool) {
	sym := normalize(symbol)
	p, err := f.lookup(ctx, sym)
	if err == nil && p > 0 {
		f.mu.Lock()
		f.lastKnown[sym] = p
		f.mu.Unlock()
		return p, true
	}

	f.mu.RLock()
	last, ok := f.lastKnown[sym]
	f.mu.RUnlock()
	if ok {
		f.log.Warn().Err(err).Str("symbol", sym).Float64("price", last).Msg("Using last known price")
		return last, false
	}
	f.log.Warn().Err(err).Str("symbol", sym).Float64("price", f.def).Msg("Using default price")
	return f.def, false
}

func (f *Fallback) lookup(ctx context.Context, sym string) (float64, error) {
	if f.timeout <= 0 {
		return f.src.Lookup(ctx, sym)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	type result struct {
		price float64
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		p, err := f.src.Lookup(ctx, sym)
		ch <- result{p, err}
	}()

	select {
	case r := <-ch:
		return r.price, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
