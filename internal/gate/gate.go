// Package gate evaluates named data-quality predicates over a
// normalized snapshot. Each gate carries a blocking policy that tells
// downstream consumers what a failure means: block halts analysis,
// degrade flags results low-confidence, warn is logged only.
package gate

import (
	"github.com/google/uuid"

	"github.com/clientpulse/clientpulse-backend/internal/domain"
	"github.com/clientpulse/clientpulse-backend/internal/normalize"
)

// Name identifies a canonical gate.
type Name string

const (
	EngagementClientConsistency Name = "engagement_client_consistency"
	TaskLinkConsistency         Name = "task_link_consistency"
	TaskLinkCoverage            Name = "task_link_coverage"
	InvoiceBillableValidity     Name = "invoice_billable_validity"
)

// Result is the outcome of one gate.
type Result struct {
	Name       Name
	Policy     domain.GatePolicy
	Passed     bool
	Violations int
}

// Report holds every gate outcome plus the measured link coverage,
// which the health scorer reads for its insufficient-data check.
type Report struct {
	Results  map[Name]Result
	Coverage float64 // fraction of tasks with project_link_status=linked
}

// Blocked reports whether any failed gate has the block policy.
func (r Report) Blocked() bool {
	for _, res := range r.Results {
		if !res.Passed && res.Policy == domain.GatePolicyBlock {
			return true
		}
	}
	return false
}

// Degraded reports whether any failed gate has the degrade policy.
// A blocked report is not also degraded; block wins.
func (r Report) Degraded() bool {
	if r.Blocked() {
		return false
	}
	for _, res := range r.Results {
		if !res.Passed && res.Policy == domain.GatePolicyDegrade {
			return true
		}
	}
	return false
}

// Passed reports whether every gate passed.
func (r Report) Passed() bool {
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// Input is the snapshot a gate evaluation runs over.
type Input struct {
	Snapshot    normalize.Snapshot
	Engagements []*domain.Engagement
	Tasks       []*domain.Task
	Invoices    []*domain.Invoice

	// CoverageThreshold is the minimum linked-task fraction for
	// task_link_coverage to pass.
	CoverageThreshold float64
}

// Evaluate runs every canonical gate against the input.
func Evaluate(in Input) Report {
	report := Report{Results: make(map[Name]Result, 4)}

	report.add(Result{
		Name:       EngagementClientConsistency,
		Policy:     domain.GatePolicyBlock,
		Violations: engagementClientViolations(in),
	})
	report.add(Result{
		Name:       TaskLinkConsistency,
		Policy:     domain.GatePolicyBlock,
		Violations: taskLinkViolations(in),
	})

	coverage, covered := LinkCoverage(in.Tasks)
	report.Coverage = coverage
	report.Results[TaskLinkCoverage] = Result{
		Name:   TaskLinkCoverage,
		Policy: domain.GatePolicyDegrade,
		// An empty task set trivially passes; there is nothing to cover.
		Passed: !covered || coverage >= in.CoverageThreshold,
	}

	report.add(Result{
		Name:       InvoiceBillableValidity,
		Policy:     domain.GatePolicyWarn,
		Violations: invoiceViolations(in.Invoices),
	})

	return report
}

func (r *Report) add(res Result) {
	res.Passed = res.Violations == 0
	r.Results[res.Name] = res
}

// engagementClientViolations counts engagements whose stored client_id
// disagrees with the value the derivation would produce.
func engagementClientViolations(in Input) int {
	n := 0
	for _, e := range in.Engagements {
		derived := normalize.DeriveEngagementClient(e, in.Snapshot)
		if !uuidPtrEqual(derived, e.ClientID) {
			n++
		}
	}
	return n
}

// taskLinkViolations counts tasks whose stored derived fields differ
// from a fresh derivation. A clean normalizer pass drives this to zero.
func taskLinkViolations(in Input) int {
	n := 0
	for _, t := range in.Tasks {
		if normalize.DeriveTask(t, in.Snapshot).Differs(t) {
			n++
		}
	}
	return n
}

// LinkCoverage is the fraction of tasks fully linked through the join
// graph. Coverage is a property of the whole snapshot, not one client:
// a broken task has no trustworthy client to attribute it to.
// measurable is false when there are no tasks at all.
func LinkCoverage(tasks []*domain.Task) (coverage float64, measurable bool) {
	if len(tasks) == 0 {
		return 0, false
	}
	linked := 0
	for _, t := range tasks {
		if t.ProjectLinkStatus == domain.ProjectLinkLinked {
			linked++
		}
	}
	return float64(linked) / float64(len(tasks)), true
}

// invoiceViolations counts open invoices that are not valid billable
// records (missing due date or missing client).
func invoiceViolations(invoices []*domain.Invoice) int {
	n := 0
	for _, inv := range invoices {
		if !inv.IsBillableValid() {
			n++
		}
	}
	return n
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
