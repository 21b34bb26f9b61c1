package dispatch

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDispatchError(t *testing.T) {
	t.Run("message includes kind", func(t *testing.T) {
		err := &DispatchError{Kind: KindEmptyMessage}
		if !strings.Contains(err.Error(), "cannot_send_empty_message") {
			t.Errorf("expected kind in message, got %q", err.Error())
		}
	})

	t.Run("unwraps to sentinel", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", &DispatchError{Kind: KindEmptyMessage})
		if !errors.Is(err, ErrEmptyMessage) {
			t.Error("expected errors.Is to match ErrEmptyMessage through wrapping")
		}
		if !IsEmptyMessage(err) {
			t.Error("expected IsEmptyMessage to match")
		}
	})

	t.Run("unknown kind unwraps to nil", func(t *testing.T) {
		err := &DispatchError{Kind: "something_else"}
		if err.Unwrap() != nil {
			t.Errorf("expected nil unwrap, got %v", err.Unwrap())
		}
		if errors.Is(err, ErrEmptyMessage) {
			t.Error("unknown kind must not match ErrEmptyMessage")
		}
	})
}

func TestSentinelErrorsArePrefixed(t *testing.T) {
	for _, err := range []error{ErrEmptyMessage, ErrDirectoryRequired, ErrDeliveryFailed} {
		if !strings.HasPrefix(err.Error(), "dispatch: ") {
			t.Errorf("expected %q to carry the package prefix", err.Error())
		}
	}
}
