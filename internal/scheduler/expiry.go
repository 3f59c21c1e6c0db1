package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/optfolio/ledger"
)

// Expirer is the part of the trading engine the expiry sweep needs.
type Expirer interface {
	ExpireDue(ctx context.Context, asOf time.Time) ([]ledger.Trade, error)
}

// ExpiryJob marks every open option past its expiration day as expired
// and releases any collateral it held.
type ExpiryJob struct {
	engine  Expirer
	log     zerolog.Logger
	now     func() time.Time
	timeout time.Duration
}

func NewExpiryJob(engine Expirer, log zerolog.Logger) *ExpiryJob {
	return &ExpiryJob{
		engine:  engine,
		log:     log.With().Str("job", "expire-due").Logger(),
		now:     time.Now,
		timeout: 30 * time.Second,
	}
}

func (j *ExpiryJob) Name() string {
	return "expire-due"
}

func (j *ExpiryJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	expired, err := j.engine.ExpireDue(ctx, j.now())
	if err != nil {
		return err
	}
	if len(expired) > 0 {
		ids := make([]string, len(expired))
		for i, t := range expired {
			ids[i] = t.ID
		}
		j.log.Info().Strs("trades", ids).Msg("Expired options")
	}
	return nil
}
