package domain

import "time"

// Redirect is the domain representation of a URL redirect.
//
// Key is globally unique across all owners; OwnerEmail is immutable after
// creation. Target is an opaque destination URI (not validated here).
type Redirect struct {
	ID         RedirectID
	OwnerEmail string

	Key    Key
	Target string

	CreatedAt time.Time
	UpdatedAt time.Time
}
