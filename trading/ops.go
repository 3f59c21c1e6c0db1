package trading

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/optfolio/account"
	"github.com/rustyeddy/optfolio/ledger"
	"github.com/rustyeddy/optfolio/position"
)

// The functions in this file are pure: they read an account and return the
// txn an operation would apply, or an error. The Engine does the applying.

type idFunc func() string

// proposeTrade computes the impact of opening a trade against the current
// positions and cash.
func proposeTrade(form TradeForm, ps position.Positions, cash float64, quote func(string) float64, legCommission float64) (TradeSummary, error) {
	f := form.Normalize()
	if err := f.Validate(); err != nil {
		return TradeSummary{}, err
	}

	qty := float64(f.Quantity)
	premium := ledger.Premium(f.Type, f.Side, qty, f.Price, f.Commission)
	t := ledger.Trade{
		Symbol:         f.Symbol,
		Side:           f.Side,
		Type:           f.Type,
		StartDate:      f.StartDate,
		ExpirationDate: f.ExpirationDate,
		Strike:         f.Strike,
		Price:          f.Price,
		Contracts:      ledger.SignedContracts(f.Side, qty),
		Status:         ledger.Open,
		Premium:        premium,
		Commission:     f.Commission,
		Covered:        f.Covered,
		Secured:        f.Secured,
		Notes:          f.Notes,
	}

	s := TradeSummary{
		Form:       f,
		Trade:      t,
		CashImpact: premium,
		NetCredit:  math.Max(premium, 0),
		NetDebit:   math.Max(-premium, 0),
		Commission: f.Commission,
	}

	switch {
	case t.Type == ledger.Stock && t.Side == ledger.STO:
		if have := ps.Shares(t.Symbol); have < qty {
			return TradeSummary{}, fmt.Errorf("sell %g %s: have %g: %w", qty, t.Symbol, have, ErrInsufficientShares)
		}

	case t.IsSecuredPut():
		c := t.Collateral()
		if cash < c {
			return TradeSummary{}, fmt.Errorf("secure %s put: need %.2f, have %.2f: %w", t.Symbol, c, cash, ErrInsufficientCollateral)
		}
		s.CollateralImpact = c

	case t.IsCoveredCall():
		required := qty * ledger.OptionMultiplier
		available := math.Max(ps.Shares(t.Symbol), 0)
		if available < required {
			s.StockPurchase = &StockLeg{
				Shares:     required - available,
				Price:      quote(t.Symbol),
				Commission: legCommission,
			}
		}
	}

	return s, nil
}

// confirmTxn turns a fresh summary into the txn that records it.
func confirmTxn(s TradeSummary, newID idFunc) account.Txn {
	t := s.Trade
	t.ID = newID()

	tx := account.Txn{
		Append:      []ledger.Trade{t},
		CashDelta:   ledger.Sum(s.CashImpact, -s.CollateralImpact),
		LockedDelta: s.CollateralImpact,
	}
	if s.CashImpact > 0 && !t.FromAssignment() {
		tx.PremiumDelta = s.CashImpact
	}

	if leg := s.StockPurchase; leg != nil {
		stock := ledger.Trade{
			ID:         newID(),
			Symbol:     t.Symbol,
			Side:       ledger.BTO,
			Type:       ledger.Stock,
			StartDate:  t.StartDate,
			Price:      leg.Price,
			Contracts:  leg.Shares,
			Status:     ledger.Open,
			Premium:    ledger.Premium(ledger.Stock, ledger.BTO, leg.Shares, leg.Price, leg.Commission),
			Commission: leg.Commission,
			Notes:      fmt.Sprintf("Shares for covered call %s", t.ID),
		}
		tx.Append = append(tx.Append, stock)
		tx.CashDelta = ledger.Sum(tx.CashDelta, stock.Premium)
	}
	return tx
}

func openTrade(a *account.Account, id string) (ledger.Trade, error) {
	t, ok := a.Ledger.Get(id)
	if !ok {
		return ledger.Trade{}, fmt.Errorf("trade %q: %w", id, ErrNotFound)
	}
	if !t.IsOpen() {
		return ledger.Trade{}, fmt.Errorf("trade %q is %s: %w", id, t.Status, ErrNotOpen)
	}
	return t, nil
}

// contractsToClose resolves a requested count; 0 means the whole trade.
func contractsToClose(t ledger.Trade, requested int) (float64, error) {
	q := t.Quantity()
	if requested == 0 {
		return q, nil
	}
	n := float64(requested)
	if requested < 0 || n > q {
		return 0, fmt.Errorf("%d of %g contracts: %w", requested, q, ErrInvalidContracts)
	}
	return n, nil
}

// splitTrade divides t into n contracts and the remainder. Premium and
// commission are apportioned by contract count.
func splitTrade(t ledger.Trade, n float64) (part, rest ledger.Trade) {
	ratio := decimal.NewFromFloat(n).Div(decimal.NewFromFloat(t.Quantity()))
	part, rest = t, t

	part.Contracts = ledger.SignedContracts(t.Side, n)
	part.Premium = decimal.NewFromFloat(t.Premium).Mul(ratio).Round(2).InexactFloat64()
	part.Commission = decimal.NewFromFloat(t.Commission).Mul(ratio).Round(2).InexactFloat64()

	rest.Contracts = ledger.SignedContracts(t.Side, t.Quantity()-n)
	rest.Premium = ledger.Sum(t.Premium, -part.Premium)
	rest.Commission = ledger.Sum(t.Commission, -part.Commission)
	return part, rest
}

// closeImpact is the cash effect of buying back (STO) or selling out (BTO)
// a position worth base.
func closeImpact(side ledger.Side, base, commission float64) float64 {
	if side == ledger.STO {
		return ledger.Sum(-commission, -base)
	}
	return ledger.Sum(-commission, base)
}

func closeTxn(a *account.Account, req CloseRequest, newID idFunc) (account.Txn, ActionSummary, error) {
	t, err := openTrade(a, req.TradeID)
	if err != nil {
		return account.Txn{}, ActionSummary{}, err
	}
	if !nonNegative(req.ClosingPrice) || !nonNegative(req.Commission) {
		return account.Txn{}, ActionSummary{}, fmt.Errorf("%w: closing price and commission must be non-negative numbers", ErrInvalidTrade)
	}
	n, err := contractsToClose(t, req.Contracts)
	if err != nil {
		return account.Txn{}, ActionSummary{}, err
	}

	impact := closeImpact(t.Side, ledger.Value(t.Type, n, req.ClosingPrice), req.Commission)
	var released float64
	if t.IsSecuredPut() {
		released = ledger.CollateralFor(t.Strike, n)
	}

	closed := t
	var rest *ledger.Trade
	if n < t.Quantity() {
		part, remainder := splitTrade(t, n)
		remainder.ID = newID()
		closed, rest = part, &remainder
	}
	closed.Status = ledger.Closed
	closed.ClosingPrice = req.ClosingPrice

	tx := account.Txn{
		Replace:     []ledger.Trade{closed},
		CashDelta:   ledger.Sum(impact, released),
		LockedDelta: -released,
	}
	sum := ActionSummary{
		TradeID:            t.ID,
		CashImpact:         impact,
		CollateralReleased: released,
		CashDelta:          tx.CashDelta,
		Trades:             []ledger.Trade{closed},
	}
	if rest != nil {
		tx.Append = []ledger.Trade{*rest}
		sum.Trades = append(sum.Trades, *rest)
	}
	return tx, sum, nil
}

func assignTxn(a *account.Account, tradeID string, commission float64, newID idFunc, now time.Time) (account.Txn, ActionSummary, error) {
	t, err := openTrade(a, tradeID)
	if err != nil {
		return account.Txn{}, ActionSummary{}, err
	}
	if !t.IsOption() || t.Side != ledger.STO {
		return account.Txn{}, ActionSummary{}, fmt.Errorf("assign %s %s %q: %w", t.Side, t.Type, t.ID, ErrNotAssignable)
	}
	if !nonNegative(commission) {
		return account.Txn{}, ActionSummary{}, fmt.Errorf("%w: commission must be a non-negative number", ErrInvalidTrade)
	}
	if t.Strike <= 0 {
		return account.Txn{}, ActionSummary{}, fmt.Errorf("%w: trade %q has no strike", ErrInvalidTrade, t.ID)
	}

	shares := t.Quantity() * ledger.OptionMultiplier
	value := ledger.CollateralFor(t.Strike, t.Quantity())

	assigned := t
	assigned.Status = ledger.Assigned
	leg := ledger.Trade{
		ID:        newID(),
		Symbol:    t.Symbol,
		Type:      ledger.Stock,
		StartDate: now,
		Price:     t.Strike,
		Status:    ledger.Open,
		Notes:     ledger.AssignedFromPrefix + t.ID,
	}

	var impact, released float64
	switch {
	case t.IsSecuredPut():
		// the locked collateral pays for the shares
		released = value
		impact = -commission
		leg.Side, leg.Contracts, leg.Premium = ledger.BTO, shares, -value
	case t.Type == ledger.Put:
		impact = ledger.Sum(-commission, -value)
		leg.Side, leg.Contracts, leg.Premium = ledger.BTO, shares, -value
	default:
		impact = ledger.Sum(value, -commission)
		leg.Side, leg.Contracts, leg.Premium = ledger.STO, -shares, value
	}

	tx := account.Txn{
		Replace:     []ledger.Trade{assigned},
		Append:      []ledger.Trade{leg},
		CashDelta:   impact,
		LockedDelta: -released,
	}
	return tx, ActionSummary{
		TradeID:            t.ID,
		CashImpact:         impact,
		CollateralReleased: released,
		CashDelta:          impact,
		Trades:             []ledger.Trade{assigned, leg},
	}, nil
}

func rollTxn(a *account.Account, req RollRequest, newID idFunc, now time.Time) (account.Txn, ActionSummary, error) {
	t, err := openTrade(a, req.TradeID)
	if err != nil {
		return account.Txn{}, ActionSummary{}, err
	}
	switch {
	case !t.IsOption():
		return account.Txn{}, ActionSummary{}, fmt.Errorf("%w: only options can be rolled", ErrInvalidTrade)
	case req.NewExpiration.IsZero():
		return account.Txn{}, ActionSummary{}, fmt.Errorf("%w: roll needs a new expiration", ErrInvalidTrade)
	case !nonNegative(req.ClosingPrice) || !nonNegative(req.Commission) || !nonNegative(req.NewStrike):
		return account.Txn{}, ActionSummary{}, fmt.Errorf("%w: roll prices and commission must be non-negative numbers", ErrInvalidTrade)
	case !positive(req.OpeningPrice):
		return account.Txn{}, ActionSummary{}, fmt.Errorf("%w: opening price must be positive", ErrInvalidTrade)
	}
	n, err := contractsToClose(t, req.Contracts)
	if err != nil {
		return account.Txn{}, ActionSummary{}, err
	}

	strike := t.Strike
	if req.NewStrike > 0 {
		strike = req.NewStrike
	}

	closeLeg := ledger.Value(t.Type, n, req.ClosingPrice)
	openLeg := ledger.Value(t.Type, n, req.OpeningPrice)
	net := ledger.Sum(closeLeg, -openLeg, -req.Commission)
	if t.Side == ledger.STO {
		net = ledger.Sum(openLeg, -closeLeg, -req.Commission)
	}

	old := t
	var rest *ledger.Trade
	if n < t.Quantity() {
		part, remainder := splitTrade(t, n)
		remainder.ID = newID()
		old, rest = part, &remainder
	}
	old.Status = ledger.Closed
	old.ClosingPrice = req.ClosingPrice

	rolled := ledger.Trade{
		ID:             newID(),
		Symbol:         t.Symbol,
		Side:           t.Side,
		Type:           t.Type,
		StartDate:      now,
		ExpirationDate: req.NewExpiration,
		Strike:         strike,
		Price:          req.OpeningPrice,
		Contracts:      ledger.SignedContracts(t.Side, n),
		Status:         ledger.Open,
		Premium:        ledger.Premium(t.Type, t.Side, n, req.OpeningPrice, req.Commission),
		Commission:     req.Commission,
		Covered:        t.Covered,
		Secured:        t.Secured,
		Notes:          fmt.Sprintf("Rolled from %s", t.ID),
	}

	var oldColl, newColl float64
	if t.IsSecuredPut() {
		oldColl = ledger.CollateralFor(t.Strike, n)
	}
	if rolled.IsSecuredPut() {
		newColl = rolled.Collateral()
	}
	if newColl > oldColl && ledger.Sum(a.Balances.Cash, oldColl) < newColl {
		return account.Txn{}, ActionSummary{}, fmt.Errorf("roll %s to %.2f: need %.2f: %w", t.Symbol, strike, newColl, ErrInsufficientCollateral)
	}

	tx := account.Txn{
		Replace:     []ledger.Trade{old},
		CashDelta:   ledger.Sum(net, oldColl, -newColl),
		LockedDelta: ledger.Sum(newColl, -oldColl),
	}
	if rolled.Premium > 0 {
		tx.PremiumDelta = rolled.Premium
	}
	trades := []ledger.Trade{old}
	if rest != nil {
		tx.Append = append(tx.Append, *rest)
		trades = append(trades, *rest)
	}
	tx.Append = append(tx.Append, rolled)
	trades = append(trades, rolled)

	return tx, ActionSummary{
		TradeID:            t.ID,
		CashImpact:         net,
		CollateralReleased: oldColl,
		CollateralLocked:   newColl,
		CashDelta:          tx.CashDelta,
		Trades:             trades,
	}, nil
}

// countsAsPremium reports whether t's premium went into the premium
// collected total. Assignment legs and cash records never do.
func countsAsPremium(t ledger.Trade) bool {
	return t.Premium > 0 && !t.IsCash() && !t.FromAssignment()
}

// removeTxn reverses a trade's recorded cash flow and deletes it.
func removeTxn(a *account.Account, tradeID string) (account.Txn, ActionSummary, error) {
	t, ok := a.Ledger.Get(tradeID)
	if !ok {
		return account.Txn{}, ActionSummary{}, fmt.Errorf("trade %q: %w", tradeID, ErrNotFound)
	}

	// collateral is only still locked while the put is open
	var released float64
	if t.IsOpen() {
		released = t.Collateral()
	}

	tx := account.Txn{
		Remove:      []string{t.ID},
		CashDelta:   ledger.Sum(-t.Premium, released),
		LockedDelta: -released,
	}
	if countsAsPremium(t) {
		tx.PremiumDelta = -t.Premium
	}
	return tx, ActionSummary{
		TradeID:            t.ID,
		CashImpact:         -t.Premium,
		CollateralReleased: released,
		CashDelta:          tx.CashDelta,
		Trades:             []ledger.Trade{t},
	}, nil
}

func editTxn(a *account.Account, tradeID string, form EditForm) (account.Txn, EditSummary, error) {
	t, ok := a.Ledger.Get(tradeID)
	if !ok {
		return account.Txn{}, EditSummary{}, fmt.Errorf("trade %q: %w", tradeID, ErrNotFound)
	}
	if t.IsCash() {
		return account.Txn{}, EditSummary{}, fmt.Errorf("%w: cash transactions cannot be edited", ErrInvalidTrade)
	}
	if err := form.Validate(); err != nil {
		return account.Txn{}, EditSummary{}, err
	}

	u := t
	u.Side = form.Side
	u.Type = form.Type
	u.Price = form.Price
	u.Commission = form.Commission
	if !form.StartDate.IsZero() {
		u.StartDate = form.StartDate
	}
	if u.Type == ledger.Stock {
		u.Strike = 0
		u.ExpirationDate = time.Time{}
	} else {
		if form.Strike > 0 {
			u.Strike = form.Strike
		}
		if !form.ExpirationDate.IsZero() {
			u.ExpirationDate = form.ExpirationDate
		}
		if u.Strike <= 0 || u.ExpirationDate.IsZero() {
			return account.Txn{}, EditSummary{}, fmt.Errorf("%w: options need a strike and an expiration date", ErrInvalidTrade)
		}
	}

	qty := t.Quantity()
	u.Contracts = ledger.SignedContracts(u.Side, qty)
	u.Premium = ledger.Premium(u.Type, u.Side, qty, u.Price, u.Commission)
	diff := ledger.Sum(u.Premium, -t.Premium)

	var collDiff float64
	if t.IsOpen() {
		collDiff = ledger.Sum(u.Collateral(), -t.Collateral())
	}
	if collDiff > 0 && ledger.Sum(a.Balances.Cash, diff) < collDiff {
		return account.Txn{}, EditSummary{}, fmt.Errorf("edit %q: need %.2f more collateral: %w", t.ID, collDiff, ErrInsufficientCollateral)
	}

	tx := account.Txn{
		Replace:     []ledger.Trade{u},
		CashDelta:   ledger.Sum(diff, -collDiff),
		LockedDelta: collDiff,
	}
	if diff > 0 && !u.FromAssignment() {
		tx.PremiumDelta = diff
	}
	return tx, EditSummary{
		TradeID:              t.ID,
		Form:                 form,
		Original:             t,
		Updated:              u,
		PremiumDifference:    diff,
		CollateralDifference: collDiff,
	}, nil
}

// cashTxn records a deposit or withdrawal. Withdrawals never take cash
// below zero.
func cashTxn(a *account.Account, action CashAction, amount float64, newID idFunc, now time.Time) (account.Txn, ledger.Trade, error) {
	amount = ledger.Cents(amount)
	t := ledger.Trade{
		ID:        newID(),
		Symbol:    ledger.CashSymbol,
		Type:      ledger.Stock,
		StartDate: now,
		Price:     1,
		Status:    ledger.Closed,
	}

	var delta float64
	switch action {
	case Deposit:
		t.Side = ledger.BTO
		t.Contracts, t.Premium = amount, amount
		t.Notes = "Cash deposit"
		delta = amount
	case Withdraw:
		t.Side = ledger.STO
		t.Contracts, t.Premium = -amount, -amount
		t.Notes = "Cash withdraw"
		cash := a.Balances.Cash
		delta = ledger.Sum(math.Max(0, ledger.Sum(cash, -amount)), -cash)
	default:
		return account.Txn{}, ledger.Trade{}, fmt.Errorf("%w: unknown cash action %q", ErrInvalidTrade, action)
	}

	return account.Txn{Append: []ledger.Trade{t}, CashDelta: delta}, t, nil
}

// importTxn appends trades as recorded elsewhere. Each trade's premium is
// applied to cash and open secured puts lock their collateral, so removing
// an imported trade undoes exactly what importing it did.
func importTxn(a *account.Account, trades []ledger.Trade, newID idFunc) (account.Txn, error) {
	var tx account.Txn
	var cash, locked, premium []float64
	for _, t := range trades {
		if t.ID == "" {
			t.ID = newID()
		}
		if !t.Side.Valid() || !t.Type.Valid() || !t.Status.Valid() {
			return account.Txn{}, fmt.Errorf("%w: trade %q has a bad side, type or status", ErrInvalidTrade, t.ID)
		}
		for _, v := range []float64{t.Strike, t.Price, t.Contracts, t.Premium, t.Commission} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return account.Txn{}, fmt.Errorf("%w: trade %q has a non-finite amount", ErrInvalidTrade, t.ID)
			}
		}
		var c float64
		if t.IsOpen() {
			c = t.Collateral()
		}
		cash = append(cash, t.Premium, -c)
		locked = append(locked, c)
		if countsAsPremium(t) {
			premium = append(premium, t.Premium)
		}
		tx.Append = append(tx.Append, t)
	}
	tx.CashDelta = ledger.Sum(cash...)
	tx.LockedDelta = ledger.Sum(locked...)
	tx.PremiumDelta = ledger.Sum(premium...)

	if tx.LockedDelta > 0 && ledger.Sum(a.Balances.Cash, tx.CashDelta) < 0 {
		return account.Txn{}, fmt.Errorf("import: need %.2f collateral: %w", tx.LockedDelta, ErrInsufficientCollateral)
	}
	return tx, nil
}

// expireTxn marks open options expired and returns secured put collateral.
func expireTxn(trades []ledger.Trade) (account.Txn, ActionSummary) {
	var tx account.Txn
	var sum ActionSummary
	var released []float64
	for _, t := range trades {
		released = append(released, t.Collateral())
		t.Status = ledger.Expired
		tx.Replace = append(tx.Replace, t)
		sum.Trades = append(sum.Trades, t)
	}
	total := ledger.Sum(released...)
	tx.CashDelta = total
	tx.LockedDelta = -total
	sum.CollateralReleased = total
	sum.CashDelta = total
	if len(trades) == 1 {
		sum.TradeID = trades[0].ID
	}
	return tx, sum
}

// dueForExpiry lists open options whose expiration day has ended.
func dueForExpiry(a *account.Account, asOf time.Time) []ledger.Trade {
	var out []ledger.Trade
	for _, t := range a.Ledger.All() {
		if t.IsOpen() && t.IsOption() && ledger.PastExpiration(t, asOf) {
			out = append(out, t)
		}
	}
	return out
}
