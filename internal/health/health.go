// Package health computes client health scores. Compute is a pure
// function: callers assemble Inputs from already-loaded rows and get a
// Score back, with no I/O on this path.
package health

import "github.com/clientpulse/clientpulse-backend/internal/domain"

// Penalty weights and caps. Each component is floored to an integer and
// capped before summing; the final score never drops below zero.
const (
	outstandingWeight = 25
	outstandingCap    = 25

	overdueWeight = 45
	overdueCap    = 45

	perIssuePenalty = 10
	issueCap        = 40
)

// Inputs is everything the scorer needs for one client.
type Inputs struct {
	// AR amounts in cents. TotalBilledCents of zero makes both ratio
	// penalties zero rather than dividing by zero.
	OutstandingCents int64
	OverdueCents     int64
	TotalBilledCents int64

	// Issues scoped to the client; the scorer filters them itself so
	// callers do not have to pre-apply suppression rules.
	Issues []*domain.Issue

	// LinkCoverage and CoverageThreshold come from the gate report.
	// MeasuredTasks false means the client had no tasks to measure.
	LinkCoverage      float64
	CoverageThreshold float64
	MeasuredTasks     bool
}

// Score is either a numeric health value or the insufficient-data
// sentinel, never a misleading number.
type Score struct {
	Value            int
	InsufficientData bool

	// Penalty breakdown for the read surface.
	OutstandingPenalty int
	OverduePenalty     int
	IssuePenalty       int
	PenalizedIssues    int
}

// Compute scores one client. When link coverage is measured and below
// the threshold the derived joins cannot be trusted, so the sentinel is
// returned instead of a value.
func Compute(in Inputs) Score {
	if in.MeasuredTasks && in.LinkCoverage < in.CoverageThreshold {
		return Score{InsufficientData: true}
	}

	s := Score{
		OutstandingPenalty: ratioPenalty(in.OutstandingCents, in.TotalBilledCents, outstandingWeight, outstandingCap),
		OverduePenalty:     ratioPenalty(in.OverdueCents, in.TotalBilledCents, overdueWeight, overdueCap),
	}

	for _, issue := range in.Issues {
		if countsAgainstHealth(issue) {
			s.PenalizedIssues++
		}
	}
	s.IssuePenalty = min(s.PenalizedIssues*perIssuePenalty, issueCap)

	s.Value = max(0, 100-s.OutstandingPenalty-s.OverduePenalty-s.IssuePenalty)
	return s
}

// countsAgainstHealth applies the full exclusion list: only open,
// unsuppressed, non-snoozed high/critical issues in health-counted
// states penalize the score.
func countsAgainstHealth(i *domain.Issue) bool {
	return i.State.IsHealthCounted() &&
		i.Severity.IsPenalized() &&
		!i.Suppressed
}

// ratioPenalty clamps numerator/denominator to [0,1], scales by weight,
// floors and caps. A zero or negative denominator yields zero.
func ratioPenalty(num, den int64, weight, ceiling int) int {
	if den <= 0 || num <= 0 {
		return 0
	}
	ratio := float64(num) / float64(den)
	if ratio > 1 {
		ratio = 1
	}
	return min(int(ratio*float64(weight)), ceiling)
}
