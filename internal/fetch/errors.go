package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/hakim/headerstat/internal/models"
)

// ErrHeaderTooLarge is returned when a response header section exceeds the
// configured byte limit before its terminating blank line.
var ErrHeaderTooLarge = errors.New("header section too large")

// FetchError is the failure of a single target. It never crosses the
// coordinator boundary as a panic or abort, only as an absent batch entry.
type FetchError struct {
	Target models.Target
	// Op is the stage that failed: connect, encode, write, read or fetch.
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.Target, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was caused by a deadline
func (e *FetchError) Timeout() bool {
	var netErr net.Error
	if errors.As(e.Err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(e.Err, context.DeadlineExceeded)
}
