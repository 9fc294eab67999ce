package venue

import (
	"errors"
	"fmt"
)

// ErrAssetNotFound signals the venue does not list the requested instrument.
var ErrAssetNotFound = errors.New("asset not found")

// RejectionError is a definitive venue-side decline of a request. Transport
// failures are plain errors; a RejectionError means the venue received the
// request and said no.
type RejectionError struct {
	Code    int
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("venue rejected request (code %d): %s", e.Code, e.Message)
}
