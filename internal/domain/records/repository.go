package records

import "context"

type Repository interface {
	Create(ctx context.Context, rec Record) error
	GetByID(ctx context.Context, id string) (Record, error)

	// ListByPatient ordena por CreatedAt DESC y devuelve el total sin paginar.
	ListByPatient(ctx context.Context, patientID string, f ListFilter) ([]Record, int, error)
}
