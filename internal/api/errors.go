package api

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired indicates the backend rejected the bearer token. The
	// session is already cleared when this is returned; callers must treat it
	// as terminal for the current operation and never retry or mask it.
	ErrSessionExpired = errors.New("session expired")

	// ErrUnreachable indicates no response was received at all.
	ErrUnreachable = errors.New("backend unreachable")
)

// StatusError is returned for any non-2xx response other than 401.
type StatusError struct {
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error (%d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}
