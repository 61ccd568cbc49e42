package scheduler

import (
	"errors"
	"fmt"
)

// errStop marks a tick error as terminal for the whole loop.
var errStop = errors.New("scheduler stop")

// Stop wraps err so the scheduler aborts instead of retrying next interval.
func Stop(err error) error {
	return fmt.Errorf("%w: %w", errStop, err)
}

// IsStop reports whether err carries the stop marker.
func IsStop(err error) bool {
	return errors.Is(err, errStop)
}
