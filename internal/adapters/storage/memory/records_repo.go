package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"consent-records/internal/domain/records"
)

type recordRepo struct {
	mu   sync.RWMutex
	byID map[string]records.Record
	seq  map[string]int
	next int
}

func NewRecordsRepo() records.Repository {
	return &recordRepo{
		byID: make(map[string]records.Record),
		seq:  make(map[string]int),
	}
}

func (r *recordRepo) Create(ctx context.Context, rec records.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		return errors.New("record id required")
	}
	if _, exists := r.byID[rec.ID]; exists {
		return errors.New("record already exists")
	}
	r.byID[rec.ID] = rec
	r.seq[rec.ID] = r.next
	r.next++
	return nil
}

func (r *recordRepo) GetByID(ctx context.Context, id string) (records.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return records.Record{}, records.ErrNotFound
	}
	return rec, nil
}

// ListByPatient: CreatedAt DESC; empates por orden de inserción inverso.
func (r *recordRepo) ListByPatient(ctx context.Context, patientID string, f records.ListFilter) ([]records.Record, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]records.Record, 0)
	for _, rec := range r.byID {
		if rec.PatientID != patientID {
			continue
		}
		if f.Type != "" && rec.Type != f.Type {
			continue
		}
		all = append(all, rec)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return r.seq[all[i].ID] > r.seq[all[j].ID]
	})

	return window(all, f.Offset, f.Limit), len(all), nil
}
