package discord

import "errors"

var (
	// ErrRemoteSync wraps any failure reported by Discord during a sync.
	ErrRemoteSync = errors.New("remote command sync failed")
	// ErrInvalidParameter is returned for a missing guild id.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrNotLoaded is returned when the client is used before Load.
	ErrNotLoaded = errors.New("client not loaded: call Load before Start")
)
