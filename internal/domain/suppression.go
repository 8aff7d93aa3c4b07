package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SuppressionRule is a dedup fence for future proposals: while an
// unexpired rule with a matching key exists, Propose is a no-op.
// Rules are deleted on revoke or expiry; enforcement always checks the
// live rule set, never a cached flag on the item.
type SuppressionRule struct {
	Key       string
	ItemType  InboxItemType
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the rule no longer suppresses at now.
func (r *SuppressionRule) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// SuppressionKeyInput carries the scoping fields that identify a
// proposal for dedup purposes.
type SuppressionKeyInput struct {
	ItemType InboxItemType
	ClientID *uuid.UUID
	// Scope is the most specific scoping available: engagement ID,
	// brand ID, or a root-cause fingerprint for unscoped proposals.
	Scope  string
	Source string
	Rule   string
}

// SuppressionKey computes the deterministic dedup key: a SHA-256 over
// the lowercased, pipe-joined identity fields. Stable across processes
// and restarts; two proposals with the same identity always collide.
func SuppressionKey(in SuppressionKeyInput) string {
	client := ""
	if in.ClientID != nil {
		client = in.ClientID.String()
	}
	parts := []string{
		string(in.ItemType),
		client,
		in.Scope,
		in.Source,
		in.Rule,
	}
	sum := sha256.Sum256([]byte(strings.ToLower(strings.Join(parts, "|"))))
	return hex.EncodeToString(sum[:])
}

// Default suppression windows per item type.
const (
	SuppressionTTLIssue     = 90 * 24 * time.Hour
	SuppressionTTLSignal    = 30 * 24 * time.Hour
	SuppressionTTLOrphan    = 180 * 24 * time.Hour
	SuppressionTTLAmbiguous = 30 * 24 * time.Hour
)

// SuppressionTTL returns the default suppression window for an item type.
func SuppressionTTL(t InboxItemType) time.Duration {
	switch t {
	case InboxTypeOrphan:
		return SuppressionTTLOrphan
	case InboxTypeSignal:
		return SuppressionTTLSignal
	case InboxTypeAmbiguous:
		return SuppressionTTLAmbiguous
	default:
		return SuppressionTTLIssue
	}
}
