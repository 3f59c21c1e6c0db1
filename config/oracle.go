package config

import (
	"context"

	"github.com/rustyeddy/optfolio/pricing"
)

// Oracle builds the configured price source. Static prices come from the
// prices map. The mock source uses pricing.Mock with any configured prices
// taking precedence.
func (p PricingConfig) Oracle() pricing.Oracle {
	if p.Source == "static" {
		return pricing.NewStatic(p.Prices)
	}
	m := pricing.NewMock(p.Seed)
	if len(p.Prices) == 0 {
		return m
	}
	static := pricing.NewStatic(p.Prices)
	return pricing.OracleFunc(func(ctx context.Context, sym string) (float64, error) {
		if v, err := static.Lookup(ctx, sym); err == nil {
			return v, nil
		}
		return m.Lookup(ctx, sym)
	})
}
