package memory

import (
	"context"
	"sort"
	"sync"

	"forecast-guard/internal/domain"
	"forecast-guard/internal/storage"
)

// ValidationRunStore is an in-memory implementation of storage.ValidationRunStore.
type ValidationRunStore struct {
	mu       sync.RWMutex
	runs     map[string]*domain.ValidationRun
	outcomes []*domain.RecordOutcome
}

// NewValidationRunStore creates a new in-memory validation run store.
func NewValidationRunStore() *ValidationRunStore {
	return &ValidationRunStore{
		runs: make(map[string]*domain.ValidationRun),
	}
}

// InsertRun adds a run summary. Returns ErrDuplicateKey if run_id exists.
func (s *ValidationRunStore) InsertRun(_ context.Context, run *domain.ValidationRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}
	runCopy := *run
	s.runs[run.RunID] = &runCopy
	return nil
}

// InsertOutcomes appends per-record outcomes.
func (s *ValidationRunStore) InsertOutcomes(_ context.Context, outcomes []*domain.RecordOutcome) error {
	for _, o := range outcomes {
		if o == nil || o.RunID == "" || o.ForecastID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range outcomes {
		s.outcomes = append(s.outcomes, copyOutcome(o))
	}
	return nil
}

// GetRun retrieves a run by ID. Returns ErrNotFound if not exists.
func (s *ValidationRunStore) GetRun(_ context.Context, runID string) (*domain.ValidationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	runCopy := *run
	return &runCopy, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *ValidationRunStore) ListRuns(_ context.Context, limit int) ([]*domain.ValidationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ValidationRun, 0, len(s.runs))
	for _, run := range s.runs {
		runCopy := *run
		result = append(result, &runCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].StartedAt.After(result[j].StartedAt)
		}
		return result[i].RunID < result[j].RunID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// GetOutcomesByForecast returns all outcomes for a record, ordered by checked_at ASC.
func (s *ValidationRunStore) GetOutcomesByForecast(_ context.Context, forecastID string) ([]*domain.RecordOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RecordOutcome
	for _, o := range s.outcomes {
		if o.ForecastID == forecastID {
			result = append(result, copyOutcome(o))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CheckedAt.Before(result[j].CheckedAt)
	})
	return result, nil
}

func copyOutcome(o *domain.RecordOutcome) *domain.RecordOutcome {
	c := *o
	if o.BoundsWidth != nil {
		v := *o.BoundsWidth
		c.BoundsWidth = &v
	}
	if o.AccuracyPct != nil {
		v := *o.AccuracyPct
		c.AccuracyPct = &v
	}
	return &c
}

var _ storage.ValidationRunStore = (*ValidationRunStore)(nil)
