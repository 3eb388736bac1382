package entities

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
}

// Actor is the identity the middleware extracts from a verified credential.
// The engine trusts it as-is.
type Actor struct {
	ID    uuid.UUID
	Email string
	Role  string
}
