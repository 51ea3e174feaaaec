package domain

import "errors"

var (
	// ErrUnknownInstrument is returned when an operation references a symbol
	// absent from the static configuration. Never retriable.
	ErrUnknownInstrument = errors.New("unknown instrument")

	// ErrInvalidInput is returned when a trade carries a non-positive
	// quantity or a non-positive/non-finite price.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownSession is returned when a session id is absent from the
	// static session tables.
	ErrUnknownSession = errors.New("unknown session")

	// ErrEngineStopped is returned when an operation arrives after the
	// engine has been stopped and not restarted.
	ErrEngineStopped = errors.New("engine stopped")

	// ErrConfigNotFound is returned when the configuration file is missing.
	ErrConfigNotFound = errors.New("configuration not found")
)

// TradeError wraps a trade rejection with the symbol and operation that
// caused it.
type TradeError struct {
	Symbol string
	Op     string // Operation that failed (e.g. "applyTrade", "snapshot")
	Err    error
}

func (e *TradeError) Error() string {
	return e.Op + " [" + e.Symbol + "]: " + e.Err.Error()
}

func (e *TradeError) Unwrap() error {
	return e.Err
}

// NewTradeError creates a TradeError for the given operation and symbol.
func NewTradeError(op, symbol string, err error) *TradeError {
	return &TradeError{Symbol: symbol, Op: op, Err: err}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
