package domain

import (
	"time"

	"github.com/google/uuid"
)

// AgingBucket classifies how far past due an invoice is.
type AgingBucket string

const (
	AgingCurrent    AgingBucket = "current"
	Aging1To30      AgingBucket = "1-30"
	Aging31To60     AgingBucket = "31-60"
	Aging61To90     AgingBucket = "61-90"
	AgingOver90     AgingBucket = "90+"
	AgingNoDueDate  AgingBucket = "no_due_date"
)

func (b AgingBucket) String() string { return string(b) }

// Invoice is a billing record. The aging bucket is derived per
// evaluation, never stored.
type Invoice struct {
	ID         uuid.UUID
	ClientID   *uuid.UUID
	Number     string
	AmountCents int64
	Status     InvoiceStatus
	DueAt      *time.Time
	PaidAt     *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsOverdue reports whether the invoice is open and past due at now.
func (i *Invoice) IsOverdue(now time.Time) bool {
	if i.Status != InvoiceOpen || i.DueAt == nil {
		return false
	}
	return i.DueAt.Before(now)
}

// IsBillableValid reports whether an open invoice carries the fields the
// billing gates require: a due date and a client.
func (i *Invoice) IsBillableValid() bool {
	if i.Status != InvoiceOpen {
		return true
	}
	return i.DueAt != nil && i.ClientID != nil
}

// Aging returns the aging bucket for the invoice at now. Paid and void
// invoices are always current; open invoices without a due date get the
// no_due_date bucket so gates can flag them.
func (i *Invoice) Aging(now time.Time) AgingBucket {
	if i.Status != InvoiceOpen {
		return AgingCurrent
	}
	if i.DueAt == nil {
		return AgingNoDueDate
	}
	days := int(now.Sub(*i.DueAt).Hours() / 24)
	switch {
	case days <= 0:
		return AgingCurrent
	case days <= 30:
		return Aging1To30
	case days <= 60:
		return Aging31To60
	case days <= 90:
		return Aging61To90
	default:
		return AgingOver90
	}
}
