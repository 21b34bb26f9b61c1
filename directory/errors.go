package directory

import "errors"

// Sentinel errors for the directory package.
var (
	// ErrInvalidUserID is returned when a user has a non-positive ID.
	ErrInvalidUserID = errors.New("directory: invalid user id")

	// ErrDuplicateUser is returned when two users share an ID.
	ErrDuplicateUser = errors.New("directory: duplicate user")

	// ErrNotConnected is returned when a loader has no usable backend handle.
	ErrNotConnected = errors.New("directory: not connected")
)

// Error checking helpers.

// IsInvalidUserID reports whether err is or wraps ErrInvalidUserID.
func IsInvalidUserID(err error) bool {
	return errors.Is(err, ErrInvalidUserID)
}

// IsDuplicateUser reports whether err is or wraps ErrDuplicateUser.
func IsDuplicateUser(err error) bool {
	return errors.Is(err, ErrDuplicateUser)
}
