package domain

import "errors"

// ErrorKind classifies why a submission did not commit.
type ErrorKind string

const (
	KindNone            ErrorKind = ""
	KindMissingField    ErrorKind = "MissingField"
	KindNotNumeric      ErrorKind = "NotNumeric"
	KindInvalidSide     ErrorKind = "InvalidSide"
	KindUnknownSymbol   ErrorKind = "UnknownSymbol"
	KindPriceOutOfRange ErrorKind = "PriceOutOfRange"
	KindOrderNotFound   ErrorKind = "OrderNotFound"
	KindIoFailure       ErrorKind = "IoFailure"
	KindInternal        ErrorKind = "Internal"
)

var (
	// ErrMissingField is returned when symbol, price, quantity or side is empty.
	ErrMissingField = errors.New("all fields must be filled in")

	// ErrNotNumeric is returned when price or quantity is not a number.
	ErrNotNumeric = errors.New("price and quantity must be numbers")

	// ErrInvalidSide is returned when the side is neither buy nor sell.
	ErrInvalidSide = errors.New("side must be BUY or SELL")

	// ErrUnknownSymbol is returned when the symbol has no reference data.
	ErrUnknownSymbol = errors.New("symbol not found")

	// ErrPriceOutOfRange is returned when the price is outside the price band.
	ErrPriceOutOfRange = errors.New("price is out of range")

	// ErrOrderNotFound is returned when a modify/cancel target is not pending.
	ErrOrderNotFound = errors.New("order not found")

	// ErrLogPoisoned is returned once the message log could not be restored
	// after a failed append. Every later append fails with it.
	ErrLogPoisoned = errors.New("message log is in an unknown state")

	// ErrSequencerStopped is returned when a command arrives after shutdown.
	ErrSequencerStopped = errors.New("sequencer stopped")
)

var sentinelKinds = map[error]ErrorKind{
	ErrMissingField:    KindMissingField,
	ErrNotNumeric:      KindNotNumeric,
	ErrInvalidSide:     KindInvalidSide,
	ErrUnknownSymbol:   KindUnknownSymbol,
	ErrPriceOutOfRange: KindPriceOutOfRange,
	ErrOrderNotFound:   KindOrderNotFound,
}

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// ValidationError is a rejected submission. It is recovered locally:
// nothing was allocated and nothing was written.
type ValidationError struct {
	Field string // Offending input field, empty when not field-specific
	Err   error  // One of the sentinel errors above
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Kind returns the kind of the wrapped sentinel.
func (e *ValidationError) Kind() ErrorKind {
	if k, ok := sentinelKinds[e.Err]; ok {
		return k
	}
	return KindInternal
}

func newValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}

// LogWriteError is a failed append to the outbound message log.
type LogWriteError struct {
	Op        string // "write", "sync", "truncate", "open"
	Attempts  int    // Attempts made before giving up
	Err       error
	Retriable bool // Whether the caller may resubmit
}

func (e *LogWriteError) Error() string {
	return "message log " + e.Op + ": " + e.Err.Error()
}

func (e *LogWriteError) IsRetriable() bool {
	return e.Retriable
}

func (e *LogWriteError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// KindOf classifies any error returned by the submission path.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind()
	}
	var le *LogWriteError
	if errors.As(err, &le) {
		return KindIoFailure
	}
	if errors.Is(err, ErrLogPoisoned) {
		return KindIoFailure
	}
	for sentinel, kind := range sentinelKinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindInternal
}

// IsValidationKind reports whether k is recovered locally as a rejection.
func IsValidationKind(k ErrorKind) bool {
	switch k {
	case KindMissingField, KindNotNumeric, KindInvalidSide,
		KindUnknownSymbol, KindPriceOutOfRange, KindOrderNotFound:
		return true
	default:
		return false
	}
}
