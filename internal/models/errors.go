package models

import "errors"

// Error categories shared by every component. Components wrap one of these
// with fmt.Errorf("%w: ...") and callers classify with errors.Is.
var (
	// ErrConfiguration marks a missing or incompatible model/parameter file.
	// It is fatal at startup and never a per-request error.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidInput marks a malformed feature matrix supplied by a caller.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNumeric marks NaN/Inf values produced during training.
	ErrNumeric = errors.New("numeric error")

	// ErrInvalidArgument marks an out-of-domain argument such as an unknown pose label.
	ErrInvalidArgument = errors.New("invalid argument")
)
