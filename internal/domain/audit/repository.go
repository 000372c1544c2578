package audit

import "context"

// Los listados van por CreatedAt DESC y devuelven además el total.
type Repository interface {
	Create(ctx context.Context, e Entry) error
	ListByPatient(ctx context.Context, patientID string, offset, limit int) ([]Entry, int, error)
	ListByActor(ctx context.Context, actorID string, offset, limit int) ([]Entry, int, error)
}
