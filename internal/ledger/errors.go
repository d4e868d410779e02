package ledger

import (
	"errors"
	"fmt"
)

// ErrNotFound reports an operation on a transaction id that was never
// assigned by the store.
var ErrNotFound = errors.New("transaction not found")

// ValidationError reports a manually supplied transaction that is missing a
// required field or carries an unusable value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid transaction: field %q %s", e.Field, e.Reason)
}
