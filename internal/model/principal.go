package model

import "github.com/google/uuid"

// Principal is the caller identity resolved from the access token.
// The zero value is an anonymous caller.
type Principal struct {
	UserID uuid.UUID
	Email  string
}

func (p Principal) IsAuthenticated() bool {
	return p.UserID != uuid.Nil
}

// OwnerID returns the user id to stamp on owned records, or nil when anonymous.
func (p Principal) OwnerID() *uuid.UUID {
	if !p.IsAuthenticated() {
		return nil
	}
	id := p.UserID
	return &id
}
