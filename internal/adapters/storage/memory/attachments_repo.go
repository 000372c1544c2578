package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"consent-records/internal/domain/attachments"
)

type attachmentRepo struct {
	mu   sync.RWMutex
	byID map[string]attachments.Attachment
}

func NewAttachmentsRepo() attachments.Repository {
	return &attachmentRepo{
		byID: make(map[string]attachments.Attachment),
	}
}

func (r *attachmentRepo) Create(ctx context.Context, a attachments.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == "" {
		return errors.New("attachment id required")
	}
	if _, exists := r.byID[a.ID]; exists {
		return errors.New("attachment already exists")
	}
	r.byID[a.ID] = a
	return nil
}

func (r *attachmentRepo) GetByID(ctx context.Context, id string) (attachments.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return attachments.Attachment{}, attachments.ErrNotFound
	}
	return a, nil
}

func (r *attachmentRepo) ListByRecord(ctx context.Context, recordID string) ([]attachments.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]attachments.Attachment, 0)
	for _, a := range r.byID {
		if a.RecordID == recordID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.Before(out[j].UploadedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *attachmentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return attachments.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}
