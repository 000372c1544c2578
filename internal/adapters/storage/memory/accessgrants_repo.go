package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"consent-records/internal/domain/accessgrants"
)

type grantRepo struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]accessgrants.Grant
}

func NewAccessGrantsRepo() accessgrants.Repository {
	return &grantRepo{
		byID: make(map[string]accessgrants.Grant),
	}
}

func (r *grantRepo) GrantOrRefresh(ctx context.Context, g accessgrants.Grant, now time.Time) (accessgrants.Grant, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g.ID == "" {
		return accessgrants.Grant{}, false, errors.New("grant id required")
	}

	var (
		current accessgrants.Grant
		found   bool
	)
	for _, id := range r.order {
		cur := r.byID[id]
		if cur.PatientID != g.PatientID || cur.DoctorID != g.DoctorID || !cur.ActiveAt(now) {
			continue
		}
		if !found || cur.ExpiresAt.After(current.ExpiresAt) {
			current, found = cur, true
		}
	}
	if found {
		if g.ExpiresAt.After(current.ExpiresAt) {
			current.ExpiresAt = g.ExpiresAt
		}
		current.DoctorEmail = g.DoctorEmail
		current.UpdatedAt = g.UpdatedAt
		r.byID[current.ID] = current
		return current, true, nil
	}

	if _, exists := r.byID[g.ID]; exists {
		return accessgrants.Grant{}, false, errors.New("grant already exists")
	}
	r.byID[g.ID] = g
	r.order = append(r.order, g.ID)
	return g, false, nil
}

func (r *grantRepo) Extend(ctx context.Context, id string, by time.Duration, now time.Time) (accessgrants.Grant, error) {
	return r.mutateActive(id, now, func(g *accessgrants.Grant) {
		g.ExpiresAt = g.ExpiresAt.Add(by)
		g.UpdatedAt = now
	})
}

func (r *grantRepo) Revoke(ctx context.Context, id string, now time.Time) (accessgrants.Grant, error) {
	return r.mutateActive(id, now, func(g *accessgrants.Grant) {
		at := now
		g.RevokedAt = &at
		g.UpdatedAt = now
	})
}

func (r *grantRepo) MarkExpiryLogged(ctx context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.byID[id]
	if !ok {
		return false, accessgrants.ErrNotFound
	}
	if g.ExpiryLoggedAt != nil {
		return false, nil
	}
	stamp := at
	g.ExpiryLoggedAt = &stamp
	r.byID[id] = g
	return true, nil
}

// mutateActive lee y escribe bajo el mismo lock.
func (r *grantRepo) mutateActive(id string, now time.Time, apply func(*accessgrants.Grant)) (accessgrants.Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.byID[id]
	if !ok {
		return accessgrants.Grant{}, accessgrants.ErrNotFound
	}
	if !g.ActiveAt(now) {
		return accessgrants.Grant{}, accessgrants.ErrBadState
	}
	apply(&g)
	r.byID[id] = g
	return g, nil
}

func (r *grantRepo) GetByID(ctx context.Context, id string) (accessgrants.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.byID[id]
	if !ok {
		return accessgrants.Grant{}, accessgrants.ErrNotFound
	}
	return g, nil
}

func (r *grantRepo) ListByPatient(ctx context.Context, patientID string) ([]accessgrants.Grant, error) {
	return r.filter(func(g accessgrants.Grant) bool { return g.PatientID == patientID }), nil
}

func (r *grantRepo) ListByDoctor(ctx context.Context, doctorID string) ([]accessgrants.Grant, error) {
	return r.filter(func(g accessgrants.Grant) bool { return g.DoctorID == doctorID }), nil
}

func (r *grantRepo) ListByPair(ctx context.Context, patientID, doctorID string) ([]accessgrants.Grant, error) {
	return r.filter(func(g accessgrants.Grant) bool {
		return g.PatientID == patientID && g.DoctorID == doctorID
	}), nil
}

func (r *grantRepo) ListExpiredUnlogged(ctx context.Context, now time.Time) ([]accessgrants.Grant, error) {
	return r.filter(func(g accessgrants.Grant) bool {
		return g.RevokedAt == nil && g.ExpiryLoggedAt == nil && !now.Before(g.ExpiresAt)
	}), nil
}

// filter recorre en orden de creación.
func (r *grantRepo) filter(match func(accessgrants.Grant) bool) []accessgrants.Grant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]accessgrants.Grant, 0)
	for _, id := range r.order {
		if g := r.byID[id]; match(g) {
			out = append(out, g)
		}
	}
	return out
}
