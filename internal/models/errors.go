package models

import "errors"

// ErrInvalidContext is the only fatal condition in the engine: a QueryContext
// that fails basic validation aborts the run before any extraction. Every
// other failure mode is absorbed into ParsingWarnings.
var ErrInvalidContext = errors.New("invalid query context")
