package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"forecast-guard/internal/domain"
	"forecast-guard/internal/storage"
)

// ForecastStore is an in-memory implementation of storage.ForecastStore.
type ForecastStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ForecastRecord // keyed by id
	now  func() time.Time
}

// NewForecastStore creates a new in-memory forecast store.
func NewForecastStore() *ForecastStore {
	return &ForecastStore{
		data: make(map[string]*domain.ForecastRecord),
		now:  time.Now,
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if id exists.
func (s *ForecastStore) Insert(_ context.Context, r *domain.ForecastRecord) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ID]; exists {
		return storage.ErrDuplicateKey
	}

	stored := r.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	s.data[r.ID] = stored
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *ForecastStore) GetByID(_ context.Context, id string) (*domain.ForecastRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return r.Clone(), nil
}

// List retrieves records matching filter, ordered by created_at ASC, id ASC.
func (s *ForecastStore) List(_ context.Context, filter storage.ForecastFilter) ([]*domain.ForecastRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ForecastRecord
	for _, r := range s.data {
		if matches(r, filter) {
			result = append(result, r.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Save writes r back if the stored version equals r.Version.
func (s *ForecastStore) Save(_ context.Context, r *domain.ForecastRecord) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.data[r.ID]
	if !exists {
		return storage.ErrNotFound
	}
	if current.Version != r.Version {
		return storage.ErrVersionConflict
	}

	r.Version++
	r.UpdatedAt = s.now().UTC()
	s.data[r.ID] = r.Clone()
	return nil
}

func matches(r *domain.ForecastRecord, f storage.ForecastFilter) bool {
	if f.Company != "" && r.Company != f.Company {
		return false
	}
	if f.ForecastType != "" && r.ForecastType != f.ForecastType {
		return false
	}
	if f.CreatedAfter != nil && r.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && r.CreatedAt.After(*f.CreatedBefore) {
		return false
	}
	if f.OnlyInvertedBounds {
		if !r.HasBounds() || !r.UpperBound.Decimal.LessThan(r.LowerBound.Decimal) {
			return false
		}
	}
	return true
}

var _ storage.ForecastStore = (*ForecastStore)(nil)
