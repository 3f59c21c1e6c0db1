package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rustyeddy/optfolio/account"
	"github.com/rustyeddy/optfolio/internal/id"
	"github.com/rustyeddy/optfolio/ledger"
	"github.com/rustyeddy/optfolio/position"
	"github.com/rustyeddy/optfolio/trading"
)

const defaultHistoryLimit = 50

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "optfolio",
		"trades":  len(s.engine.Trades()),
	})
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	trades := s.engine.Trades()
	if tf := r.URL.Query().Get("tf"); tf != "" {
		window, err := ledger.ParseTimeframe(tf)
		if err != nil {
			s.writeErr(w, err)
			return
		}
		trades = ledger.Filter(trades, window, s.clock())
	}
	if trades == nil {
		trades = []ledger.Trade{}
	}
	s.writeJSON(w, http.StatusOK, trades)
}

// tradeIDMiddleware turns away ids that could never name a trade.
func (s *Server) tradeIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tradeID := chi.URLParam(r, "id"); !id.Valid(tradeID) {
			s.writeErr(w, fmt.Errorf("%w: malformed trade id %q", errBadRequest, tradeID))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleGetTrade(w http.ResponseWriter, r *http.Request) {
	t, err := s.engine.Trade(chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleProposeTrade(w http.ResponseWriter, r *http.Request) {
	var form trading.TradeForm
	if !s.decode(w, r, &form) {
		return
	}
	sum, err := s.engine.Propose(r.Context(), form)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

// handleConfirmTrade accepts either a proposal summary or just its form;
// the impact is recomputed against the current account either way.
func (s *Server) handleConfirmTrade(w http.ResponseWriter, r *http.Request) {
	var sum trading.TradeSummary
	if !s.decode(w, r, &sum) {
		return
	}
	trades, err := s.engine.Confirm(r.Context(), sum)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, trades)
}

func (s *Server) handleProposeEdit(w http.ResponseWriter, r *http.Request) {
	var form trading.EditForm
	if !s.decode(w, r, &form) {
		return
	}
	sum, err := s.engine.ProposeEdit(r.Context(), chi.URLParam(r, "id"), form)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleEditTrade(w http.ResponseWriter, r *http.Request) {
	var form trading.EditForm
	if !s.decode(w, r, &form) {
		return
	}
	sum, err := s.engine.Edit(r.Context(), chi.URLParam(r, "id"), form)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleRemoveTrade(w http.ResponseWriter, r *http.Request) {
	sum, err := s.engine.Remove(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleCloseTrade(w http.ResponseWriter, r *http.Request) {
	var req trading.CloseRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.TradeID = chi.URLParam(r, "id")
	sum, err := s.engine.Close(r.Context(), req)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleAssignTrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Commission float64 `json:"commission"`
	}
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	sum, err := s.engine.Assign(r.Context(), chi.URLParam(r, "id"), req.Commission)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleRollTrade(w http.ResponseWriter, r *http.Request) {
	var req trading.RollRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.TradeID = chi.URLParam(r, "id")
	sum, err := s.engine.Roll(r.Context(), req)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleExpireTrade(w http.ResponseWriter, r *http.Request) {
	sum, err := s.engine.Expire(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

type positionsResponse struct {
	Positions []position.Position `json:"positions"`
	TotalPL   float64             `json:"total_pl"`
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	ps := s.engine.Positions(r.Context())
	resp := positionsResponse{Positions: ps.All(), TotalPL: ps.TotalPL()}
	if resp.Positions == nil {
		resp.Positions = []position.Position{}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Balances())
}

func (s *Server) handlePremium(w http.ResponseWriter, r *http.Request) {
	tf, err := ledger.ParseTimeframe(r.URL.Query().Get("tf"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"timeframe": tf,
		"premium":   s.engine.PremiumCollected(tf),
	})
}

func (s *Server) handleExpiring(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 5)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	trades := s.engine.Expiring(days)
	if trades == nil {
		trades = []ledger.Trade{}
	}
	s.writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusNotImplemented, "history requires a persistent journal")
		return
	}
	limit, err := queryInt(r, "limit", defaultHistoryLimit)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	recs, err := s.history.History(r.Context(), limit)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, recs)
}

// cashRequest takes the amount as typed by a person, e.g. "$1,000".
type cashRequest struct {
	Action string `json:"action"`
	Amount string `json:"amount"`
}

func (s *Server) handleCash(w http.ResponseWriter, r *http.Request) {
	var req cashRequest
	if !s.decode(w, r, &req) {
		return
	}
	action, err := trading.ParseCashAction(req.Action)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	// unreadable amounts are ignored like non-positive ones
	amount, err := trading.ParseAmount(req.Amount)
	if err != nil {
		s.log.Debug().Err(err).Msg("Ignoring cash request")
		amount = 0
	}
	t, err := s.engine.CashTransaction(r.Context(), action, amount)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"trade":    t,
		"balances": s.engine.Balances(),
	})
}

func (s *Server) handlePortfolioValue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value float64 `json:"value"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.SetPortfolioValue(r.Context(), req.Value); err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.engine.Balances())
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, key)
	}
	return n, nil
}

var errBadRequest = errors.New("bad request")

// decode reads a JSON body into v, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, trading.ErrInvalidTrade),
		errors.Is(err, trading.ErrInvalidAmount),
		errors.Is(err, trading.ErrInvalidContracts),
		errors.Is(err, ledger.ErrUnknownTimeframe),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, trading.ErrInsufficientShares),
		errors.Is(err, trading.ErrInsufficientCollateral),
		errors.Is(err, trading.ErrNotOpen),
		errors.Is(err, trading.ErrNotAssignable),
		errors.Is(err, account.ErrNegativeCollateral),
		errors.Is(err, ledger.ErrDuplicateID):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("Request failed")
	}
	s.writeError(w, status, err.Error())
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
