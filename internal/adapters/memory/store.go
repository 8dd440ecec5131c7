// Package memory provides an in-process transactional store implementing every
// curation repository. It backs STORAGE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
)

type memoryState struct {
	records    map[string]*entities.CurationRecord
	evidence   map[string]*entities.EvidenceItem
	provenance []*entities.FieldProvenance
	nextProvID int64
	reviews    map[string]*entities.ReviewChangeItem
	staging    map[string]*entities.StagingComponent
	jobs       map[string]*entities.EnrichmentJob
}

func newMemoryState() memoryState {
	return memoryState{
		records:  map[string]*entities.CurationRecord{},
		evidence: map[string]*entities.EvidenceItem{},
		reviews:  map[string]*entities.ReviewChangeItem{},
		staging:  map[string]*entities.StagingComponent{},
		jobs:     map[string]*entities.EnrichmentJob{},
	}
}

// clone copies the maps. Stored values are replaced on write, never mutated in
// place, so sharing the pointers between a transaction and the committed state is safe.
func (s memoryState) clone() memoryState {
	out := memoryState{
		records:    make(map[string]*entities.CurationRecord, len(s.records)),
		evidence:   make(map[string]*entities.EvidenceItem, len(s.evidence)),
		provenance: slices.Clone(s.provenance),
		nextProvID: s.nextProvID,
		reviews:    make(map[string]*entities.ReviewChangeItem, len(s.reviews)),
		staging:    make(map[string]*entities.StagingComponent, len(s.staging)),
		jobs:       make(map[string]*entities.EnrichmentJob, len(s.jobs)),
	}
	for k, v := range s.records {
		out.records[k] = v
	}
	for k, v := range s.evidence {
		out.evidence[k] = v
	}
	for k, v := range s.reviews {
		out.reviews[k] = v
	}
	for k, v := range s.staging {
		out.staging[k] = v
	}
	for k, v := range s.jobs {
		out.jobs[k] = v
	}
	return out
}

// Store is a mutex-guarded in-memory database. Transactions hold the lock for
// their whole duration and work on a copy of the state that is swapped in on commit.
type Store struct {
	mu    sync.Mutex
	state memoryState
	nowFn func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		state: newMemoryState(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the clock used for created_at/updated_at stamps
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

type txKey struct{}

type memTx struct {
	store *Store
	state memoryState
}

func (s *Store) txFrom(ctx context.Context) *memTx {
	tx, ok := ctx.Value(txKey{}).(*memTx)
	if ok && tx.store == s {
		return tx
	}
	return nil
}

// WithinTx implements repositories.TxManager
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txFrom(ctx) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, state: s.state.clone()}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// do runs fn against the transaction state carried by ctx, or against the
// committed state under the store lock.
func (s *Store) do(ctx context.Context, fn func(st *memoryState, now time.Time) error) error {
	if tx := s.txFrom(ctx); tx != nil {
		return fn(&tx.state, s.nowFn())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.state, s.nowFn())
}

// Repository accessors. Store satisfies every interface; these keep wiring explicit.

// Records returns the record repository
func (s *Store) Records() repositories.CurationRecordRepository { return (*recordRepo)(s) }

// Evidence returns the evidence repository
func (s *Store) Evidence() repositories.EvidenceRepository { return (*evidenceRepo)(s) }

// Provenance returns the provenance repository
func (s *Store) Provenance() repositories.ProvenanceRepository { return (*provenanceRepo)(s) }

// Reviews returns the review repository
func (s *Store) Reviews() repositories.ReviewRepository { return (*reviewRepo)(s) }

// Staging returns the staging repository
func (s *Store) Staging() repositories.StagingRepository { return (*stagingRepo)(s) }

// Jobs returns the enrichment job repository
func (s *Store) Jobs() repositories.EnrichmentJobRepository { return (*jobRepo)(s) }

var _ repositories.TxManager = (*Store)(nil)

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return []T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func sortByCreated[T any](items []T, created func(T) time.Time, id func(T) string, desc bool) {
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if ci.Equal(cj) {
			if desc {
				return id(items[i]) > id(items[j])
			}
			return id(items[i]) < id(items[j])
		}
		if desc {
			return ci.After(cj)
		}
		return ci.Before(cj)
	})
}
