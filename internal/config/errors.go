package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfig matches every configuration document failure.
	ErrConfig = errors.New("configuration error")

	// ErrEnvironment matches missing credentials.
	ErrEnvironment = errors.New("environment error")
)

// Error is a failure to read or validate the configuration document.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("error loading %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrConfig }

// EnvError names the required environment variables that are not set.
type EnvError struct {
	Missing []string
}

func (e *EnvError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s; "+
		"make sure your .env file includes them, or create it with: fastiscord init",
		strings.Join(e.Missing, ", "))
}

func (e *EnvError) Is(target error) bool { return target == ErrEnvironment || target == ErrConfig }
