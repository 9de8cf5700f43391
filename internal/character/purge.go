// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package character

import "fmt"

// OutcomeStatus describes what happened to one table during a sweep.
type OutcomeStatus string

const (
	// OutcomeDeleted means the delete ran. Rows may be zero.
	OutcomeDeleted OutcomeStatus = "deleted"
	// OutcomeSkipped means the table or its character_id column does not
	// exist in this deployment.
	OutcomeSkipped OutcomeStatus = "skipped"
	// OutcomeFailed means the delete raised some other error and was rolled
	// back to the table's savepoint.
	OutcomeFailed OutcomeStatus = "failed"
)

// TableOutcome is the result of sweeping a single dependent table.
type TableOutcome struct {
	Table  string
	Rows   int64
	Status OutcomeStatus
	Err    error // nil when Status is OutcomeDeleted
}

func (o TableOutcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", o.Table, o.Status, o.Err)
	}
	return fmt.Sprintf("%s: %s %d", o.Table, o.Status, o.Rows)
}

// PurgeReport accumulates the outcome of every table in sweep order.
type PurgeReport struct {
	Outcomes []TableOutcome
}

// RowsDeleted sums dependent rows removed. The character row is not counted.
func (r *PurgeReport) RowsDeleted() int64 {
	if r == nil {
		return 0
	}
	var n int64
	for _, o := range r.Outcomes {
		if o.Status == OutcomeDeleted {
			n += o.Rows
		}
	}
	return n
}

// Problems returns the outcomes that did not complete normally.
func (r *PurgeReport) Problems() []TableOutcome {
	if r == nil {
		return nil
	}
	var out []TableOutcome
	for _, o := range r.Outcomes {
		if o.Status != OutcomeDeleted {
			out = append(out, o)
		}
	}
	return out
}

// reached is how many tables the sweep got through before it stopped.
func (r *PurgeReport) reached() int {
	if r == nil {
		return 0
	}
	return len(r.Outcomes)
}
