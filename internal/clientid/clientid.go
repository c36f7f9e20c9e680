// Package clientid mints an opaque identifier for each Client instance,
// used only for log correlation when a process holds more than one
// connection.
package clientid

import "github.com/google/uuid"

// ID is an opaque per-Client identifier.
type ID string

// New returns a fresh, randomly generated ID.
func New() ID {
	return ID(uuid.NewString())
}

func (id ID) String() string {
	return string(id)
}
