package domain

import (
	"time"

	"github.com/google/uuid"
)

// Client is the root business relationship. Clients are created by
// ingestion and never derived-deleted.
type Client struct {
	ID        uuid.UUID
	Name      string
	Tier      ClientTier
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Brand is a sub-unit of a client. ClientID is required; brands are
// created manually, never inferred.
type Brand struct {
	ID        uuid.UUID
	ClientID  uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
