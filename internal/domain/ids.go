package domain

import "github.com/oklog/ulid/v2"

// NewID returns a store-assigned document identifier.
func NewID() string {
	return ulid.Make().String()
}
