package memory

import (
	"context"
	"errors"
	"sync"

	"consent-records/internal/domain/audit"
)

// auditRepo es append-only.
type auditRepo struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

func NewAuditRepo() audit.Repository {
	return &auditRepo{}
}

func (r *auditRepo) Create(ctx context.Context, e audit.Entry) error {
	if e.ID == "" {
		return errors.New("audit entry id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *auditRepo) ListByPatient(ctx context.Context, patientID string, offset, limit int) ([]audit.Entry, int, error) {
	return r.list(func(e audit.Entry) bool { return e.PatientID == patientID }, offset, limit)
}

func (r *auditRepo) ListByActor(ctx context.Context, actorID string, offset, limit int) ([]audit.Entry, int, error) {
	return r.list(func(e audit.Entry) bool { return e.ActorID == actorID }, offset, limit)
}

// list recorre de atrás para adelante: lo último insertado primero.
func (r *auditRepo) list(match func(audit.Entry) bool, offset, limit int) ([]audit.Entry, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]audit.Entry, 0)
	for i := len(r.entries) - 1; i >= 0; i-- {
		if match(r.entries[i]) {
			all = append(all, r.entries[i])
		}
	}
	return window(all, offset, limit), len(all), nil
}
