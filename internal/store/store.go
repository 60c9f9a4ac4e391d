// Package store implements the durable State Store: one JSON document of
// WorkItems, one JSON document of enrichment records, both written through
// the atomic temp-file-then-rename discipline the teacher's postgres.go
// applied to its transactional SaveAnalysisResult (begin -> insert ->
// commit) and which here becomes compute -> write-temp -> backup-prior ->
// rename. There is no SQL engine backing this: the specification's state
// store is explicitly file-based, so the durability primitive is file
// rename rather than a database transaction, but the discipline -- never
// leave the store in a half-written state -- is the same idea the teacher
// reached for with tx.Commit/tx.Rollback.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rawblock/realty-pipeline/pkg/models"
)

// ErrCorrupt is returned when both a state file and its .bak fallback are
// unreadable. The orchestrator treats this as fatal and refuses to
// process any property.
var ErrCorrupt = errors.New("state store corrupt")

// workItemsDoc and enrichmentDoc are the single-document shapes persisted
// to disk; both are address-keyed maps, which the specification allows
// as an alternative to list-of-objects as long as the shape doesn't
// change across versions without a bump.
type workItemsDoc struct {
	SchemaVersion int                         `json:"schema_version"`
	Items         map[string]*models.WorkItem `json:"items"`
}

type enrichmentDoc struct {
	SchemaVersion int                         `json:"schema_version"`
	Records       map[string]*models.Property `json:"records"`
}

const currentSchemaVersion = 1

// Store is the process-local handle to the two backing files. All
// mutation goes through a single mutex: the specification permits
// multi-process concurrency only across disjoint property sets, but a
// single process's own goroutines share this one Store and must not race
// on the in-memory documents between reading them and atomically
// rewriting the file.
type Store struct {
	mu            sync.Mutex
	workItemsPath string
	enrichPath    string
	lockExpiry    time.Duration
	log           *zap.Logger

	workItems workItemsDoc
	enrich    enrichmentDoc
}

// Open loads (or initializes) the work-items and enrichment documents from
// dataDir. A stale in-progress lock (older than lockExpiry) is reset to
// pending as part of the load, per the specification's crash-recovery
// rule.
func Open(dataDir string, lockExpiry time.Duration, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		workItemsPath: dataDir + "/work_items.json",
		enrichPath:    dataDir + "/enrichment.json",
		lockExpiry:    lockExpiry,
		log:           log,
		workItems:     workItemsDoc{SchemaVersion: currentSchemaVersion, Items: map[string]*models.WorkItem{}},
		enrich:        enrichmentDoc{SchemaVersion: currentSchemaVersion, Records: map[string]*models.Property{}},
	}

	if err := readJSONWithFallback(s.workItemsPath, &s.workItems); err != nil && !errors.Is(err, errNotExist) {
		return nil, fmt.Errorf("%w: work items: %v", ErrCorrupt, err)
	}
	if s.workItems.Items == nil {
		s.workItems.Items = map[string]*models.WorkItem{}
	}

	if err := readJSONWithFallback(s.enrichPath, &s.enrich); err != nil && !errors.Is(err, errNotExist) {
		return nil, fmt.Errorf("%w: enrichment: %v", ErrCorrupt, err)
	}
	if s.enrich.Records == nil {
		s.enrich.Records = map[string]*models.Property{}
	}

	s.resetStaleLocks()
	return s, nil
}

func (s *Store) resetStaleLocks() {
	now := time.Now()
	for addr, item := range s.workItems.Items {
		if item.Lock == nil {
			continue
		}
		if now.Sub(item.Lock.AcquiredAt) > s.lockExpiry {
			s.log.Info("resetting stale lock on load", zap.String("address", addr), zap.String("owner", item.Lock.Owner))
			item.Lock = nil
			for phase, status := range item.PhaseStatus {
				if status == models.StatusInProgress {
					item.PhaseStatus[phase] = models.StatusPending
				}
			}
		}
	}
}

// GetOrCreateWorkItem returns the existing item for address, creating one
// with every phase pending if this is the first encounter.
func (s *Store) GetOrCreateWorkItem(address string) *models.WorkItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := models.NormalizeAddress(address)
	item, ok := s.workItems.Items[addr]
	if !ok {
		item = models.NewWorkItem(addr)
		s.workItems.Items[addr] = item
	}
	return item
}

// AcquireLock implements the specification's three-way acquire predicate:
// true iff no lock exists, the existing owner matches, or the existing
// lock has expired. Never returns false because of a live owner holding
// onto the lock indefinitely -- the stale-lock reclaim is the liveness
// guarantee.
func (s *Store) AcquireLock(address, owner string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := models.NormalizeAddress(address)
	item, ok := s.workItems.Items[addr]
	if !ok {
		item = models.NewWorkItem(addr)
		s.workItems.Items[addr] = item
	}

	now := time.Now()
	if item.Lock != nil && item.Lock.Owner != owner && now.Sub(item.Lock.AcquiredAt) <= s.lockExpiry {
		return false, nil
	}

	item.Lock = &models.Lock{Owner: owner, AcquiredAt: now}
	item.LastUpdated = now
	return true, s.persistWorkItemsLocked()
}

// ReleaseLock clears the lock if owner currently holds it.
func (s *Store) ReleaseLock(address, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := models.NormalizeAddress(address)
	item, ok := s.workItems.Items[addr]
	if !ok || item.Lock == nil || item.Lock.Owner != owner {
		return nil
	}
	item.Lock = nil
	item.LastUpdated = time.Now()
	return s.persistWorkItemsLocked()
}

// CommitPhase sets phase's status for address and persists the change.
// Only the lock owner may call this; it is the caller's responsibility to
// have verified ownership (the phase orchestrator always does, since it
// is the one that acquired the lock).
func (s *Store) CommitPhase(address string, phase models.PhaseID, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := models.NormalizeAddress(address)
	item, ok := s.workItems.Items[addr]
	if !ok {
		return fmt.Errorf("commit phase: no work item for %s", addr)
	}

	if status == models.StatusFailed {
		item.RetryCount[phase]++
	}
	item.PhaseStatus[phase] = status
	if status == models.StatusComplete {
		item.LastCommit = phase
	}
	item.LastUpdated = time.Now()
	return s.persistWorkItemsLocked()
}

// UpsertEnrichment replaces the stored enrichment record for the
// property's address. Callers (the merge logic in internal/extractorch
// and the phase orchestrator) are responsible for applying precedence
// rules before calling this -- the store itself only persists whatever it
// is given.
func (s *Store) UpsertEnrichment(p *models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := models.NormalizeAddress(p.FullAddress)
	p.FullAddress = addr
	s.enrich.Records[addr] = p
	return s.persistEnrichmentLocked()
}

// GetEnrichment returns the stored record for address, or nil if none
// exists yet.
func (s *Store) GetEnrichment(address string) *models.Property {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enrich.Records[models.NormalizeAddress(address)]
}

// AllWorkItems returns a snapshot slice of every work item, in no
// particular order; callers that need determinism should sort by address.
func (s *Store) AllWorkItems() []*models.WorkItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.WorkItem, 0, len(s.workItems.Items))
	for _, item := range s.workItems.Items {
		out = append(out, item)
	}
	return out
}

// ResetCheckpoints clears every phase back to pending for address,
// implementing the CLI's --fresh flag.
func (s *Store) ResetCheckpoints(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := models.NormalizeAddress(address)
	item, ok := s.workItems.Items[addr]
	if !ok {
		return nil
	}
	fresh := models.NewWorkItem(addr)
	fresh.Lock = item.Lock
	s.workItems.Items[addr] = fresh
	return s.persistWorkItemsLocked()
}

func (s *Store) persistWorkItemsLocked() error {
	return writeAtomicJSON(s.workItemsPath, &s.workItems)
}

func (s *Store) persistEnrichmentLocked() error {
	return writeAtomicJSON(s.enrichPath, &s.enrich)
}
