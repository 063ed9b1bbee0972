package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind int

const (
	// KindNetwork means the backend could not be reached at all.
	KindNetwork Kind = iota
	// KindBusiness means the backend answered and reported a failure.
	KindBusiness
	// KindDecode means the backend answered with something unreadable.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindBusiness:
		return "business"
	case KindDecode:
		return "decode"
	}
	return "unknown"
}

const (
	MsgUnreachable = "Cannot reach the server. Please check your connection and try again."
	MsgGeneric     = "Something went wrong. Please try again later."
)

// technicalMarkers are fragments that only make sense to developers. A
// server message containing one is replaced by MsgGeneric.
var technicalMarkers = []string{
	"cors",
	"access-control-allow-origin",
	"failed to fetch",
	"networkerror",
	"err_",
	"exception",
	"sql",
	"stack",
	"nullpointer",
	"internal server error",
}

type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend %s error (status %d): %s: %v", e.Kind, e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("backend %s error (status %d): %s", e.Kind, e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrNotFound can be matched with errors.Is against a 404 *Error.
var ErrNotFound = errors.New("not found")

func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// FilterMessage returns msg unless it is empty or looks technical.
func FilterMessage(msg string) string {
	m := strings.TrimSpace(msg)
	if m == "" {
		return MsgGeneric
	}
	lower := strings.ToLower(m)
	for _, marker := range technicalMarkers {
		if strings.Contains(lower, marker) {
			return MsgGeneric
		}
	}
	return m
}

// UserMessage maps any error from this package to text fit for a shopper.
func UserMessage(err error) string {
	var be *Error
	if !errors.As(err, &be) {
		return MsgGeneric
	}
	switch be.Kind {
	case KindNetwork:
		return MsgUnreachable
	case KindBusiness:
		return FilterMessage(be.Message)
	}
	return MsgGeneric
}

// IsStatus reports whether err is a backend error with the given status.
func IsStatus(err error, status int) bool {
	var be *Error
	return errors.As(err, &be) && be.Status == status
}
