package ledger

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Timeframe selects a trailing window of trades by start date.
type Timeframe string

var ErrUnknownTimeframe = errors.New("unknown timeframe")

const (
	OneMonth    Timeframe = "1M"
	ThreeMonths Timeframe = "3M"
	OneYear     Timeframe = "1Y"
	AllTime     Timeframe = "All"
)

func ParseTimeframe(s string) (Timeframe, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "1M":
		return OneMonth, nil
	case "3M":
		return ThreeMonths, nil
	case "1Y":
		return OneYear, nil
	case "ALL", "":
		return AllTime, nil
	}
	return "", fmt.Errorf("%w %q (want 1M, 3M, 1Y or All)", ErrUnknownTimeframe, s)
}

// Cutoff returns the earliest start date included in the window ending at
// now. The zero time means the window is unbounded.
func (tf Timeframe) Cutoff(now time.Time) time.Time {
	switch tf {
	case OneMonth:
		return now.AddDate(0, -1, 0)
	case ThreeMonths:
		return now.AddDate(0, -3, 0)
	case OneYear:
		return now.AddDate(-1, 0, 0)
	}
	return time.Time{}
}

// Filter keeps trades whose start date falls inside the window.
func Filter(trades []Trade, tf Timeframe, now time.Time) []Trade {
	cutoff := tf.Cutoff(now)
	if cutoff.IsZero() {
		return trades
	}
	out := make([]Trade, 0, len(trades))
	for _, t := range trades {
		if !t.StartDate.Before(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

// PremiumCollected sums positive STO premiums inside the window. Share
// proceeds from assignment are not premium.
func PremiumCollected(trades []Trade, tf Timeframe, now time.Time) float64 {
	var amounts []float64
	for _, t := range Filter(trades, tf, now) {
		if t.Side == STO && t.Premium > 0 && !t.FromAssignment() {
			amounts = append(amounts, t.Premium)
		}
	}
	return Sum(amounts...)
}

// ExpiringWithin reports whether an option expires between now and now+days.
func ExpiringWithin(t Trade, now time.Time, days int) bool {
	if t.ExpirationDate.IsZero() {
		return false
	}
	limit := now.Add(time.Duration(days) * 24 * time.Hour)
	return !t.ExpirationDate.After(limit) && !t.ExpirationDate.Before(now)
}

// RemainingDays is the whole number of days until expiration, rounded up and
// floored at zero. ok is false for trades without an expiration.
func RemainingDays(t Trade, now time.Time) (days int, ok bool) {
	if t.ExpirationDate.IsZero() {
		return 0, false
	}
	d := math.Ceil(t.ExpirationDate.Sub(now).Hours() / 24)
	if d < 0 {
		return 0, true
	}
	return int(d), true
}

// PastExpiration reports whether the option's expiration day ended before asOf.
func PastExpiration(t Trade, asOf time.Time) bool {
	if t.ExpirationDate.IsZero() {
		return false
	}
	y, m, d := t.ExpirationDate.Date()
	endOfDay := time.Date(y, m, d, 0, 0, 0, 0, t.ExpirationDate.Location()).AddDate(0, 0, 1)
	return !asOf.Before(endOfDay)
}
