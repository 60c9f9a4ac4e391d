package models

import "time"

// PhaseID identifies one of the seven ordered phases a property moves
// through. Values are stable strings because they are persisted in the
// work-items JSON file and must survive round-trips across versions.
type PhaseID string

const (
	PhaseCounty    PhaseID = "P0_county"
	PhaseCost      PhaseID = "P05_cost"
	PhaseListing   PhaseID = "P1_listing"
	PhaseMap       PhaseID = "P1_map"
	PhaseExterior  PhaseID = "P2A_exterior"
	PhaseInterior  PhaseID = "P2B_interior"
	PhaseSynthesis PhaseID = "P3_synthesis"
	PhaseReport    PhaseID = "P4_report"
)

// Phases is the canonical, declared-order list consulted by the phase
// orchestrator and the crash-recovery scan.
var Phases = []PhaseID{
	PhaseCounty,
	PhaseCost,
	PhaseListing,
	PhaseMap,
	PhaseExterior,
	PhaseInterior,
	PhaseSynthesis,
	PhaseReport,
}

// Status is the lifecycle state of a single phase for a single property.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

// MaxRetries is the number of failed attempts a phase tolerates before the
// item is permanently skipped for that phase.
const MaxRetries = 3

// Lock describes the current holder of a property's work-item, if any.
type Lock struct {
	Owner      string    `json:"owner"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// WorkItem is the durable, per-property record tracking phase progress,
// retries, and lock ownership.
type WorkItem struct {
	Address     string             `json:"address"`
	PhaseStatus map[PhaseID]Status `json:"phase_status"`
	RetryCount  map[PhaseID]int    `json:"retry_count"`
	Lock        *Lock              `json:"lock,omitempty"`
	LastCommit  PhaseID            `json:"last_commit,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	LastUpdated time.Time          `json:"last_updated"`
}

// NewWorkItem returns a fresh item with every phase pending.
func NewWorkItem(address string) *WorkItem {
	now := time.Now()
	status := make(map[PhaseID]Status, len(Phases))
	retries := make(map[PhaseID]int, len(Phases))
	for _, p := range Phases {
		status[p] = StatusPending
		retries[p] = 0
	}
	return &WorkItem{
		Address:     address,
		PhaseStatus: status,
		RetryCount:  retries,
		StartedAt:   now,
		LastUpdated: now,
	}
}

// Done reports whether the item has reached a terminal state: P4_report
// complete, or any phase permanently failed at the retry ceiling.
func (w *WorkItem) Done() bool {
	if w.PhaseStatus[PhaseReport] == StatusComplete {
		return true
	}
	for _, p := range Phases {
		if w.PhaseStatus[p] == StatusFailed && w.RetryCount[p] >= MaxRetries {
			return true
		}
	}
	return false
}

// NextPendingPhase returns the first phase, in Phases order, whose
// status is neither complete nor skipped.
func (w *WorkItem) NextPendingPhase() (PhaseID, bool) {
	for _, p := range Phases {
		s := w.PhaseStatus[p]
		if s != StatusComplete && s != StatusSkipped {
			return p, true
		}
	}
	return "", false
}
