// Package ledger records every import attempt against the coordinating
// node. The ledger is append-only: entries change status as a batch
// moves through the pipeline, but no entry is ever removed. The record
// of what was imported, when, and from which facility must survive the
// batches themselves.
package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/open-osp/integrator/internal/identity"
)

// Status is the lifecycle state of an import entry.
type Status string

const (
	// StatusPending means the batch is admitted and waiting for the
	// sweep to pick it up (or for its dependency to complete).
	StatusPending Status = "pending"
	// StatusRunning means the merge pass over the batch is in progress.
	StatusRunning Status = "running"
	// StatusCompleted means the merge pass finished. Per-record errors
	// do not fail the batch; they are noted in StatusDetail.
	StatusCompleted Status = "completed"
	// StatusFailed is terminal. Failed entries do not count for
	// checksum dedup, so the same content may be resubmitted.
	StatusFailed Status = "failed"
)

// Entry is one row of the import ledger.
type Entry struct {
	ID            uuid.UUID           `json:"id"`
	FacilityID    identity.FacilityID `json:"facility_id"`
	Filename      string              `json:"filename"`
	Checksum      string              `json:"checksum"`
	IntervalStart *time.Time          `json:"interval_start,omitempty"`
	IntervalEnd   *time.Time          `json:"interval_end,omitempty"`
	// DependsOn names another batch (by filename, same facility) that
	// must complete before this entry becomes runnable.
	DependsOn    *string   `json:"depends_on,omitempty"`
	Status       Status    `json:"status"`
	StatusDetail string    `json:"status_detail,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Terminal reports whether the entry's status can no longer change.
func (e *Entry) Terminal() bool {
	return e.Status == StatusCompleted || e.Status == StatusFailed
}

var (
	// ErrImmutableLedger is returned for any attempt to remove a ledger
	// entry, regardless of its status.
	ErrImmutableLedger = errors.New("ledger entries cannot be removed")
	// ErrDuplicateChecksum signals that a non-failed entry with the same
	// facility and checksum already exists.
	ErrDuplicateChecksum = errors.New("checksum already imported for facility")
	// ErrCyclicDependency is returned at admission when the dependency
	// chain would loop back on itself.
	ErrCyclicDependency = errors.New("cyclic batch dependency")
	// ErrNotFound is returned when no entry matches.
	ErrNotFound = errors.New("ledger entry not found")
)

// DependencyState classifies an entry's dependency for scheduling.
type DependencyState int

const (
	// DepNone: the entry declares no dependency.
	DepNone DependencyState = iota
	// DepSatisfied: the dependency completed.
	DepSatisfied
	// DepWaiting: the dependency exists but has not completed, or has
	// not been admitted yet. The entry stays pending.
	DepWaiting
	// DepFailed: the dependency failed; the failure propagates.
	DepFailed
)
