package oracle

import "errors"

// ErrExhausted reports that every structured-generation attempt produced
// output that could not be parsed or validated. Callers above level 1 treat
// it as a degraded-empty result, not a fatal condition.
var ErrExhausted = errors.New("oracle: no valid structured response after all attempts")

// PermanentError marks a failure that will not resolve with retries, such
// as the configured model not being available. It terminates the run.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}
