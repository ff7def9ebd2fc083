package discovery

import (
	"errors"
	"fmt"
)

// ErrDiscovery matches every discovery failure.
var ErrDiscovery = errors.New("discovery error")

// Validation failures wrapped by Error.
var (
	ErrMissingName    = errors.New("data.name must be a non-empty string")
	ErrMissingRun     = errors.New("run must name a registered handler")
	ErrUnknownHandler = errors.New("no handler registered under this key")
	ErrUnknownEvent   = errors.New("unsupported event name")
)

// Error names the manifest (or pattern) that stopped a discovery pass.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to load handler module %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrDiscovery }
