package pricing

import (
	"context"
	"math/rand"
	"sync"
)

// BasePrices are the fixed quotes the mock oracle returns for well known symbols.
var BasePrices = map[string]float64{
	"AAPL":  182.5,
	"MSFT":  358.75,
	"GOOGL": 142.3,
	"TSLA":  248.5,
}

// Mock stands in for a market data feed. Known symbols get BasePrices; any
// other symbol gets 100 + rand*200, drawn once and then remembered so
// repeated lookups agree.
type Mock struct {
	mu     sync.Mutex
	rng    *rand.Rand
	quoted map[string]float64
}

func NewMock(seed int64) *Mock {
	return &Mock{
		rng:    rand.New(rand.NewSource(seed)),
		quoted: make(map[string]float64),
	}
}

func (m *Mock) Lookup(ctx context.Context, symbol string) (float64, error) {
	sym := normalize(symbol)
	if p, ok := BasePrices[sym]; ok {
		return p, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.quoted[sym]; ok {
		return p, nil
	}
	p := 100 + m.rng.Float64()*200
	m.quoted[sym] = p
	return p, nil
}
