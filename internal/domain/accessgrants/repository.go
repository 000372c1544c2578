package accessgrants

import (
	"context"
	"time"
)

// Repository: GetByID devuelve ErrNotFound. Los listados respetan el orden de creación.
//
// Las mutaciones son atómicas por grant y condicionales: solo aplican si el grant
// sigue activo a now. Si no, devuelven ErrBadState sin escribir.
type Repository interface {
	GetByID(ctx context.Context, id string) (Grant, error)
	ListByPatient(ctx context.Context, patientID string) ([]Grant, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]Grant, error)
	ListByPair(ctx context.Context, patientID, doctorID string) ([]Grant, error)

	// ListExpiredUnlogged: vencidos a now, no revocados, sin ExpiryLoggedAt.
	ListExpiredUnlogged(ctx context.Context, now time.Time) ([]Grant, error)

	// GrantOrRefresh guarda g, salvo que el par ya tenga un grant activo a now:
	// en ese caso lleva su ExpiresAt a max(actual, g.ExpiresAt) y devuelve refreshed=true.
	// Dos llamadas concurrentes para el mismo par dejan un solo grant activo.
	GrantOrRefresh(ctx context.Context, g Grant, now time.Time) (out Grant, refreshed bool, err error)

	Extend(ctx context.Context, id string, by time.Duration, now time.Time) (Grant, error)
	Revoke(ctx context.Context, id string, now time.Time) (Grant, error)

	// MarkExpiryLogged sella ExpiryLoggedAt si aún no estaba. false si otro ya lo hizo.
	MarkExpiryLogged(ctx context.Context, id string, at time.Time) (bool, error)
}
