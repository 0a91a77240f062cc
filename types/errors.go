package types

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind sentinels. Session errors match them with errors.Is.
var (
	ErrModelLoad = errors.New("model load failed")
	ErrInference = errors.New("inference failed")
	ErrDecode    = errors.New("audio decode failed")

	// ErrBusy is returned when a session already has a call in flight.
	ErrBusy = errors.New("session busy")
)

// Error tags a cause with one of the kind sentinels.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Kind }

func ModelLoadError(err error) error { return &Error{Kind: ErrModelLoad, Err: err} }
func InferenceError(err error) error { return &Error{Kind: ErrInference, Err: err} }
func DecodeError(err error) error    { return &Error{Kind: ErrDecode, Err: err} }

// UserMessage converts an error into the string shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrModelLoad):
		return "Failed to load model"
	case errors.Is(err, ErrDecode):
		return "Failed to decode audio"
	case errors.Is(err, ErrBusy):
		return "Already working on a request"
	case errors.Is(err, ErrInference):
		return "Failed to run inference"
	default:
		return err.Error()
	}
}
