package domain

import "github.com/google/uuid"

// IssueFilter contains filtering/pagination parameters for issue lists.
type IssueFilter struct {
	States     []IssueState
	Severities []IssueSeverity
	Types      []IssueType
	ClientID   *uuid.UUID
	Suppressed *bool
	Limit      int
	Offset     int
}

// InboxFilter contains filtering/pagination parameters for inbox lists.
type InboxFilter struct {
	States   []InboxState
	Types    []InboxItemType
	ClientID *uuid.UUID
	Limit    int
	Offset   int
}
