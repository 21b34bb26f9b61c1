// Package directory defines the user directory consulted when dispatching
// messages, and the User record it holds.
//
// Implementations:
//   - In-memory (directory/memory) - the immutable pool used at dispatch time
//   - PostgreSQL (directory/postgres) - loads a memory snapshot from a table
//   - MongoDB (directory/mongo) - loads a memory snapshot from a collection
package directory

// User is a known message recipient.
// Users are values; directories hand out copies and never mutate them.
type User struct {
	// ID is the unique, positive user identifier.
	ID int
	// Name is the display name of the user.
	Name string
	// Age is the user's age in years.
	Age int
	// Email is the delivery address used by transports.
	Email string
}

// Directory resolves user IDs to users.
// Implementations must be safe for concurrent use.
type Directory interface {
	// AllUsers returns the complete pool in the order it was populated.
	AllUsers() []User

	// FindByIDs returns every user whose ID is in ids, in pool order
	// (not the order of ids). Unknown IDs produce no entry and no error.
	// An empty ids yields an empty, non-nil slice.
	FindByIDs(ids []int) []User
}
