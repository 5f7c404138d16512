package portfolio

import "errors"

var (
	// ErrInsufficientFunds rejects a buy or withdrawal exceeding the wallet
	// balance. Nothing is mutated.
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	// ErrDuplicateSymbol means the stock symbol is already in the catalog.
	ErrDuplicateSymbol = errors.New("stock symbol already exists")
	// ErrNotFound means the portfolio or stock does not exist, or is not
	// owned by the requesting user.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput rejects malformed operation arguments.
	ErrInvalidInput = errors.New("invalid input")
)
