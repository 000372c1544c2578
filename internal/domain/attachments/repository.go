package attachments

import "context"

type Repository interface {
	Create(ctx context.Context, a Attachment) error
	GetByID(ctx context.Context, id string) (Attachment, error)
	ListByRecord(ctx context.Context, recordID string) ([]Attachment, error)
	Delete(ctx context.Context, id string) error
}
