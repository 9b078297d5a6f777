package domain

import (
	"github.com/google/uuid"
)

// UserID is the stable identifier handed to us by the identity provider.
// The core never mints these, it only trusts them.
type UserID string

func (id UserID) String() string {
	return string(id)
}

type CallID string

func NewCallID() CallID {
	return CallID(uuid.New().String())
}

func (id CallID) String() string {
	return string(id)
}
