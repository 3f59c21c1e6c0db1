package trading

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/optfolio/ledger"
)

var (
	ErrInsufficientShares     = errors.New("insufficient shares")
	ErrInsufficientCollateral = errors.New("insufficient cash for collateral")
	ErrNotFound               = fmt.Errorf("trading: %w", ledger.ErrNotFound)
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidTrade           = errors.New("invalid trade")
	ErrInvalidContracts       = errors.New("invalid contract count")
	ErrNotOpen                = errors.New("trade is not open")
	ErrNotAssignable          = errors.New("only short options can be assigned")
)
