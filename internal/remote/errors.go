package remote

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingSuggestions is returned when a suggestion response carries no
// validLinkTypes field at all
var ErrMissingSuggestions = errors.New("remote: suggestion response has no validLinkTypes")

// Error is a failed call to the remote graph service: a transport failure,
// a timeout, or a non-2xx response
type Error struct {
	Op      string // operation name, e.g. "create component"
	Status  int    // HTTP status, 0 when no response arrived
	Message string // text supplied by the service, if any
	Err     error  // underlying transport or decoding error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: server error %d", e.Op, e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Timeout reports whether the call hit its deadline
func (e *Error) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// ServiceMessage returns the service-supplied message carried by err, or
// fallback when err carries none
func ServiceMessage(err error, fallback string) string {
	var re *Error
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return fallback
}
