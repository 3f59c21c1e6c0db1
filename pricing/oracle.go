// Package pricing provides market price oracles. The accounting core only
// needs a symbol-to-price lookup; every implementation here satisfies Oracle.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var ErrNoPrice = errors.New("price not found")

// Oracle returns a current market price for a symbol.
type Oracle interface {
	Lookup(ctx context.Context, symbol string) (float64, error)
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(ctx context.Context, symbol string) (float64, error)

func (f OracleFunc) Lookup(ctx context.Context, symbol string) (float64, error) {
	return f(ctx, symbol)
}

// Static is an in-memory price table.
type Static struct {
	mu     sync.RWMutex
	prices map[string]float64
}

func NewStatic(prices map[string]float64) *Static {
	s := &Static{prices: make(map[string]float64, len(prices))}
	for sym, p := range prices {
		s.prices[normalize(sym)] = p
	}
	return s
}

func (s *Static) Set(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[normalize(symbol)] = price
}

func (s *Static) Lookup(ctx context.Context, symbol string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[normalize(symbol)]
	if !ok {
		return 0, fmt.Errorf("%s: %w", symbol, ErrNoPrice)
	}
	return p, nil
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
