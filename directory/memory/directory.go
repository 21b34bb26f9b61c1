// Package memory provides the in-memory Directory implementation.
// A Directory is immutable once built and safe for concurrent reads without locking.
package memory

import (
	"fmt"

	"github.com/rbaliyan/dispatch/directory"
)

// Compile-time check
var _ directory.Directory = (*Directory)(nil)

// Directory is a fixed pool of users held in population order.
type Directory struct {
	users []directory.User
	index map[int]int // user ID -> position in users
}

// New builds a Directory from users, preserving their order.
// The input is copied to prevent external mutation.
// Returns ErrInvalidUserID for non-positive IDs and ErrDuplicateUser for repeated IDs.
func New(users ...directory.User) (*Directory, error) {
	d := &Directory{
		users: make([]directory.User, 0, len(users)),
		index: make(map[int]int, len(users)),
	}
	for _, u := range users {
		if u.ID <= 0 {
			return nil, fmt.Errorf("%w: %d", directory.ErrInvalidUserID, u.ID)
		}
		if _, ok := d.index[u.ID]; ok {
			return nil, fmt.Errorf("%w: %d", directory.ErrDuplicateUser, u.ID)
		}
		d.index[u.ID] = len(d.users)
		d.users = append(d.users, u)
	}
	return d, nil
}

// AllUsers returns a copy of the pool in population order.
func (d *Directory) AllUsers() []directory.User {
	out := make([]directory.User, len(d.users))
	copy(out, d.users)
	return out
}

// FindByIDs returns the users whose IDs appear in ids, in pool order.
func (d *Directory) FindByIDs(ids []int) []directory.User {
	if len(ids) == 0 {
		return []directory.User{}
	}

	// Mark requested positions; walking the marks keeps pool order
	// and collapses repeated IDs.
	wanted := make([]bool, len(d.users))
	n := 0
	for _, id := range ids {
		pos, ok := d.index[id]
		if !ok || wanted[pos] {
			continue
		}
		wanted[pos] = true
		n++
	}

	out := make([]directory.User, 0, n)
	for pos, ok := range wanted {
		if ok {
			out = append(out, d.users[pos])
		}
	}
	return out
}

// Get returns the user with the given ID.
func (d *Directory) Get(id int) (directory.User, bool) {
	pos, ok := d.index[id]
	if !ok {
		return directory.User{}, false
	}
	return d.users[pos], true
}

// Len returns the number of users in the pool.
func (d *Directory) Len() int {
	return len(d.users)
}
