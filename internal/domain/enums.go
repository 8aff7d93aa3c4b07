package domain

// ProjectLinkStatus describes how a task resolves through its engagement chain.
type ProjectLinkStatus string

const (
	ProjectLinkLinked   ProjectLinkStatus = "linked"
	ProjectLinkPartial  ProjectLinkStatus = "partial"
	ProjectLinkUnlinked ProjectLinkStatus = "unlinked"
)

func (s ProjectLinkStatus) String() string { return string(s) }

func (s ProjectLinkStatus) IsValid() bool {
	switch s {
	case ProjectLinkLinked, ProjectLinkPartial, ProjectLinkUnlinked:
		return true
	}
	return false
}

// ClientLinkStatus describes whether a task resolves to a client.
// "n/a" is reserved for tasks under internal engagements.
type ClientLinkStatus string

const (
	ClientLinkLinked   ClientLinkStatus = "linked"
	ClientLinkUnlinked ClientLinkStatus = "unlinked"
	ClientLinkNA       ClientLinkStatus = "n/a"
)

func (s ClientLinkStatus) String() string { return string(s) }

func (s ClientLinkStatus) IsValid() bool {
	switch s {
	case ClientLinkLinked, ClientLinkUnlinked, ClientLinkNA:
		return true
	}
	return false
}

// EngagementState represents the lifecycle state of an engagement.
type EngagementState string

const (
	EngagementProspect   EngagementState = "prospect"
	EngagementScoping    EngagementState = "scoping"
	EngagementActive     EngagementState = "active"
	EngagementDelivering EngagementState = "delivering"
	EngagementOnHold     EngagementState = "on_hold"
	EngagementCompleted  EngagementState = "completed"
	EngagementCancelled  EngagementState = "cancelled"
)

func (s EngagementState) String() string { return string(s) }

func (s EngagementState) IsValid() bool {
	switch s {
	case EngagementProspect, EngagementScoping, EngagementActive, EngagementDelivering,
		EngagementOnHold, EngagementCompleted, EngagementCancelled:
		return true
	}
	return false
}

// EngagementType distinguishes one-off projects from retainers.
type EngagementType string

const (
	EngagementTypeProject  EngagementType = "project"
	EngagementTypeRetainer EngagementType = "retainer"
)

func (t EngagementType) String() string { return string(t) }

func (t EngagementType) IsValid() bool {
	switch t {
	case EngagementTypeProject, EngagementTypeRetainer:
		return true
	}
	return false
}

// IssueState represents the lifecycle state of an issue.
type IssueState string

const (
	IssueDetected           IssueState = "detected"
	IssueSurfaced           IssueState = "surfaced"
	IssueSnoozed            IssueState = "snoozed"
	IssueAcknowledged       IssueState = "acknowledged"
	IssueAddressing         IssueState = "addressing"
	IssueAwaitingResolution IssueState = "awaiting_resolution"
	IssueResolved           IssueState = "resolved"
	IssueRegressionWatch    IssueState = "regression_watch"
	IssueClosed             IssueState = "closed"
	IssueRegressed          IssueState = "regressed"
)

func (s IssueState) String() string { return string(s) }

func (s IssueState) IsValid() bool {
	switch s {
	case IssueDetected, IssueSurfaced, IssueSnoozed, IssueAcknowledged, IssueAddressing,
		IssueAwaitingResolution, IssueResolved, IssueRegressionWatch, IssueClosed, IssueRegressed:
		return true
	}
	return false
}

// IsHealthCounted reports whether issues in this state count against
// a client's health score.
func (s IssueState) IsHealthCounted() bool {
	switch s {
	case IssueSurfaced, IssueAcknowledged, IssueAddressing, IssueAwaitingResolution, IssueRegressed:
		return true
	}
	return false
}

// IssueSeverity represents how serious an issue is.
type IssueSeverity string

const (
	SeverityLow      IssueSeverity = "low"
	SeverityMedium   IssueSeverity = "medium"
	SeverityHigh     IssueSeverity = "high"
	SeverityCritical IssueSeverity = "critical"
)

func (s IssueSeverity) String() string { return string(s) }

func (s IssueSeverity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// IsPenalized reports whether the severity contributes to health scoring.
func (s IssueSeverity) IsPenalized() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// IssueType categorizes the root cause of an issue.
type IssueType string

const (
	IssueTypeUnlinkedWork   IssueType = "unlinked_work"
	IssueTypeBillingHygiene IssueType = "billing_hygiene"
	IssueTypeClientRisk     IssueType = "client_risk"
	IssueTypeDeliveryStall  IssueType = "delivery_stall"
	IssueTypeDataQuality    IssueType = "data_quality"
)

func (t IssueType) String() string { return string(t) }

func (t IssueType) IsValid() bool {
	switch t {
	case IssueTypeUnlinkedWork, IssueTypeBillingHygiene, IssueTypeClientRisk,
		IssueTypeDeliveryStall, IssueTypeDataQuality:
		return true
	}
	return false
}

// InboxState represents the lifecycle state of an inbox item.
type InboxState string

const (
	InboxProposed      InboxState = "proposed"
	InboxSnoozed       InboxState = "snoozed"
	InboxDismissed     InboxState = "dismissed"
	InboxLinkedToIssue InboxState = "linked_to_issue"
)

func (s InboxState) String() string { return string(s) }

func (s InboxState) IsValid() bool {
	switch s {
	case InboxProposed, InboxSnoozed, InboxDismissed, InboxLinkedToIssue:
		return true
	}
	return false
}

// IsTerminal reports whether the state is final. Terminal items are
// immutable except for audit reads.
func (s InboxState) IsTerminal() bool {
	return s == InboxDismissed || s == InboxLinkedToIssue
}

// IsActive reports whether the item still occupies the
// one-active-proposal-per-underlying-entity slot.
func (s InboxState) IsActive() bool {
	return s == InboxProposed || s == InboxSnoozed
}

// InboxItemType categorizes what an inbox item proposes.
type InboxItemType string

const (
	InboxTypeIssue     InboxItemType = "issue"
	InboxTypeSignal    InboxItemType = "signal"
	InboxTypeOrphan    InboxItemType = "orphan"
	InboxTypeAmbiguous InboxItemType = "ambiguous"
)

func (t InboxItemType) String() string { return string(t) }

func (t InboxItemType) IsValid() bool {
	switch t {
	case InboxTypeIssue, InboxTypeSignal, InboxTypeOrphan, InboxTypeAmbiguous:
		return true
	}
	return false
}

// GatePolicy declares what a failing gate does to downstream analysis.
type GatePolicy string

const (
	GatePolicyBlock   GatePolicy = "block"
	GatePolicyDegrade GatePolicy = "degrade"
	GatePolicyWarn    GatePolicy = "warn"
)

func (p GatePolicy) String() string { return string(p) }

func (p GatePolicy) IsValid() bool {
	switch p {
	case GatePolicyBlock, GatePolicyDegrade, GatePolicyWarn:
		return true
	}
	return false
}

// EntityType identifies the kind of domain entity (used in transition
// logs and resolution queue entries).
type EntityType string

const (
	EntityTypeClient     EntityType = "client"
	EntityTypeBrand      EntityType = "brand"
	EntityTypeEngagement EntityType = "engagement"
	EntityTypeTask       EntityType = "task"
	EntityTypeInvoice    EntityType = "invoice"
	EntityTypeSignal     EntityType = "signal"
	EntityTypeIssue      EntityType = "issue"
	EntityTypeInboxItem  EntityType = "inbox_item"
)

func (e EntityType) String() string { return string(e) }

func (e EntityType) IsValid() bool {
	switch e {
	case EntityTypeClient, EntityTypeBrand, EntityTypeEngagement, EntityTypeTask,
		EntityTypeInvoice, EntityTypeSignal, EntityTypeIssue, EntityTypeInboxItem:
		return true
	}
	return false
}

// TransitionReason is the reason code attached to every lifecycle transition.
type TransitionReason string

const (
	ReasonUserAction        TransitionReason = "user_action"
	ReasonSystemTimer       TransitionReason = "system_timer"
	ReasonSystemAggregation TransitionReason = "system_aggregation"
	ReasonSystemSignal      TransitionReason = "system_signal"
)

func (r TransitionReason) String() string { return string(r) }

func (r TransitionReason) IsValid() bool {
	switch r {
	case ReasonUserAction, ReasonSystemTimer, ReasonSystemAggregation, ReasonSystemSignal:
		return true
	}
	return false
}

// ActorSystem is the actor recorded for system-triggered transitions.
const ActorSystem = "system"

// Sentiment is the polarity extracted from a signal by the upstream detector.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

func (s Sentiment) String() string { return string(s) }

func (s Sentiment) IsValid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

// InvoiceStatus is the billing state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft InvoiceStatus = "draft"
	InvoiceOpen  InvoiceStatus = "open"
	InvoicePaid  InvoiceStatus = "paid"
	InvoiceVoid  InvoiceStatus = "void"
)

func (s InvoiceStatus) String() string { return string(s) }

func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceDraft, InvoiceOpen, InvoicePaid, InvoiceVoid:
		return true
	}
	return false
}

// ClientTier groups clients by commercial importance.
type ClientTier string

const (
	TierStrategic     ClientTier = "strategic"
	TierCore          ClientTier = "core"
	TierTransactional ClientTier = "transactional"
)

func (t ClientTier) String() string { return string(t) }

func (t ClientTier) IsValid() bool {
	switch t {
	case TierStrategic, TierCore, TierTransactional:
		return true
	}
	return false
}
