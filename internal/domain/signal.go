package domain

import (
	"time"

	"github.com/google/uuid"
)

// Scope is the client/brand/engagement scoping of a signal or issue.
// All fields are optional; a signal that fails to resolve to exactly one
// engagement is an orphan (zero matches) or ambiguous (several).
type Scope struct {
	ClientID     *uuid.UUID
	BrandID      *uuid.UUID
	EngagementID *uuid.UUID
}

// Evidence is the envelope detectors attach to every signal.
type Evidence struct {
	Version      int            `json:"version"`
	Kind         string         `json:"kind"`
	URL          *string        `json:"url"`
	DisplayText  string         `json:"display_text"`
	SourceSystem string         `json:"source_system"`
	SourceID     string         `json:"source_id"`
	Payload      map[string]any `json:"payload"`
}

// Signal is a single observation from an external source. Immutable once
// created except for the dismissed flag.
type Signal struct {
	ID            uuid.UUID
	Scope         Scope
	Sentiment     Sentiment
	RuleTriggered string
	Source        string
	Evidence      Evidence
	Dismissed     bool
	ObservedAt    time.Time
	CreatedAt     time.Time
}
