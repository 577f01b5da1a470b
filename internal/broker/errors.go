package broker

import "fmt"

// TransientError is a failed broker round-trip (submit, cancel, or query).
// The caller decides between log-and-continue and propagation; the engine
// abandons the current decision cycle and never retries automatically.
type TransientError struct {
	Op  string // "submit", "cancel", "clock", "account", "position", "orders"
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("broker %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}
