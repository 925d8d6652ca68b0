package engine

import "errors"

var (
	ErrNotReady         = errors.New("action not available in current state")
	ErrWriteInFlight    = errors.New("a prior write is still unconfirmed")
	ErrNoQuote          = errors.New("no valid quote")
	ErrExceedsBalance   = errors.New("liquidity to burn exceeds held balance")
	ErrDegenerateQuote  = errors.New("minimum amount is zero")
	ErrMissingPosition  = errors.New("no position selected")
	ErrApprovalRequired = errors.New("token approval required")
)
