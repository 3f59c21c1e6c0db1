package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("trade not found")
	ErrDuplicateID = errors.New("duplicate trade id")
)

// Ledger is an ordered, append-mostly collection of trades. It is not safe
// for concurrent use; the trading engine serializes access.
type Ledger struct {
	trades []Trade
	index  map[string]int
}

// New builds a ledger from trades in the given order.
func New(trades ...Trade) (*Ledger, error) {
	l := &Ledger{index: make(map[string]int, len(trades))}
	if err := l.Append(trades...); err != nil {
		return nil, err
	}
	return l, nil
}

// Append adds trades at the end. Either all are appended or none.
func (l *Ledger) Append(trades ...Trade) error {
	if l.index == nil {
		l.index = make(map[string]int)
	}
	batch := make(map[string]bool, len(trades))
	for _, t := range trades {
		if t.ID == "" {
			return fmt.Errorf("append: trade for %s has no id", t.Symbol)
		}
		if _, ok := l.index[t.ID]; ok || batch[t.ID] {
			return fmt.Errorf("append %q: %w", t.ID, ErrDuplicateID)
		}
		batch[t.ID] = true
	}
	for _, t := range trades {
		l.index[t.ID] = len(l.trades)
		l.trades = append(l.trades, t)
	}
	return nil
}

// Replace swaps the trade with the given id in place, keeping its position.
func (l *Ledger) Replace(id string, t Trade) error {
	i, ok := l.index[id]
	if !ok {
		return fmt.Errorf("replace %q: %w", id, ErrNotFound)
	}
	if t.ID != id {
		return fmt.Errorf("replace %q: replacement carries id %q", id, t.ID)
	}
	l.trades[i] = t
	return nil
}

// Remove deletes the trade with the given id.
func (l *Ledger) Remove(id string) error {
	i, ok := l.index[id]
	if !ok {
		return fmt.Errorf("remove %q: %w", id, ErrNotFound)
	}
	l.trades = append(l.trades[:i], l.trades[i+1:]...)
	delete(l.index, id)
	for j := i; j < len(l.trades); j++ {
		l.index[l.trades[j].ID] = j
	}
	return nil
}

// Get returns the trade with the given id.
func (l *Ledger) Get(id string) (Trade, bool) {
	i, ok := l.index[id]
	if !ok {
		return Trade{}, false
	}
	return l.trades[i], true
}

// All returns a copy of the trades in ledger order.
func (l *Ledger) All() []Trade {
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

func (l *Ledger) Len() int { return len(l.trades) }

// Clone returns an independent copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{
		trades: l.All(),
		index:  make(map[string]int, len(l.index)),
	}
	for k, v := range l.index {
		c.index[k] = v
	}
	return c
}
