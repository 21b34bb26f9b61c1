package dispatch

import (
	"errors"
	"fmt"
)

// Sentinel errors for the dispatch package.
// Use errors.Is() to check for these errors.
var (
	// ErrEmptyMessage is matched by the error of a dispatch rejected for an empty message body.
	ErrEmptyMessage = errors.New("dispatch: cannot send empty message")

	// ErrDirectoryRequired is returned when no user directory is configured.
	ErrDirectoryRequired = errors.New("dispatch: directory is required")

	// ErrDeliveryFailed wraps send failures produced by the sender adapters in this package.
	ErrDeliveryFailed = errors.New("dispatch: delivery failed")
)

// ErrorKind identifies why a dispatch failed.
// It is the failure payload of an Outcome.
type ErrorKind string

const (
	// KindEmptyMessage is reported when the message body is empty.
	KindEmptyMessage ErrorKind = "cannot_send_empty_message"
)

// sentinel returns the package error matching the kind, if any.
func (k ErrorKind) sentinel() error {
	switch k {
	case KindEmptyMessage:
		return ErrEmptyMessage
	default:
		return nil
	}
}

// DispatchError is the error form of a failed Outcome.
type DispatchError struct {
	Kind ErrorKind
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch: %s", e.Kind)
}

func (e *DispatchError) Unwrap() error {
	return e.Kind.sentinel()
}

// IsEmptyMessage reports whether err comes from an empty-message dispatch.
func IsEmptyMessage(err error) bool {
	return errors.Is(err, ErrEmptyMessage)
}

// PluginError represents an error from a plugin.
type PluginError struct {
	Plugin string
	Op     string
	Err    error
}

func (e *PluginError) Error() string {
	return "plugin " + e.Plugin + " " + e.Op + ": " + e.Err.Error()
}

func (e *PluginError) Unwrap() error {
	return e.Err
}
