package domain

import (
	"time"

	"github.com/google/uuid"
)

// Task is a unit of work, optionally tied to an engagement. BrandID,
// ClientID and both link statuses are derived by the normalizer; raw
// ingestion only ever writes ProjectID.
type Task struct {
	ID                uuid.UUID
	ProjectID         *uuid.UUID // engagement reference from the source system
	BrandID           *uuid.UUID // derived
	ClientID          *uuid.UUID // derived
	Name              string
	IsCompleted       bool
	DueAt             *time.Time
	ProjectLinkStatus ProjectLinkStatus
	ClientLinkStatus  ClientLinkStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
