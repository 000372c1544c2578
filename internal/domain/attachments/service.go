package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"consent-records/internal/domain/audit"
	"consent-records/internal/domain/records"
	"consent-records/internal/domain/users"
	"consent-records/internal/ports/blob"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrTooLarge       = errors.New("file too large")
	ErrForbidden      = errors.New("forbidden")
	ErrAccessRequired = errors.New("access required")
	ErrNotFound       = errors.New("not found")

	ErrUnauthenticated = errors.New("unauthenticated")
)

const (
	DefaultURLTTL   = 30 * time.Minute
	DefaultMaxBytes = 10 << 20
)

// RecordAccess es el subconjunto de records.Service que usan los adjuntos.
type RecordAccess interface {
	GetAuthorized(ctx context.Context, userID, recordID string, mode records.Mode) (records.Record, users.User, error)
}

type Service struct {
	repo    Repository
	records RecordAccess
	store   blob.Store
	audit   audit.Recorder
	now     func() time.Time

	urlTTL   time.Duration
	maxBytes int64
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithURLTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.urlTTL = ttl
		}
	}
}

func WithMaxBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

func NewService(repo Repository, recs RecordAccess, store blob.Store, rec audit.Recorder, opts ...Option) *Service {
	if rec == nil {
		rec = audit.Discard
	}
	s := &Service{
		repo:     repo,
		records:  recs,
		store:    store,
		audit:    rec,
		now:      time.Now,
		urlTTL:   DefaultURLTTL,
		maxBytes: DefaultMaxBytes,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// MaxBytes es el límite por archivo.
func (s *Service) MaxBytes() int64 { return s.maxBytes }

type FileInput struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Upload guarda cada archivo en el blob store y persiste su metadata.
// Solo médicos con grant activo sobre el paciente del registro.
func (s *Service) Upload(ctx context.Context, userID, recordID string, files []FileInput) ([]Attachment, error) {
	rec, doctor, err := s.records.GetAuthorized(ctx, userID, recordID, records.ModeWrite)
	if err != nil {
		return nil, translate(err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files", ErrInvalidInput)
	}
	for _, f := range files {
		if strings.TrimSpace(f.Name) == "" || f.Body == nil {
			return nil, fmt.Errorf("%w: file name required", ErrInvalidInput)
		}
		if f.Size > s.maxBytes {
			return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, f.Name, s.maxBytes)
		}
	}

	out := make([]Attachment, 0, len(files))
	for _, f := range files {
		name := filepath.Base(strings.TrimSpace(f.Name))
		key := BlobKey(rec.PatientID, rec.ID, uuid.NewString(), name)

		if err := s.store.Put(ctx, key, f.Body, f.Size, f.ContentType); err != nil {
			return out, fmt.Errorf("store %s: %w", name, err)
		}

		a := Attachment{
			ID:          uuid.NewString(),
			RecordID:    rec.ID,
			PatientID:   rec.PatientID,
			FileName:    name,
			ContentType: f.ContentType,
			Size:        f.Size,
			BlobKey:     key,
			UploadedBy:  doctor.ID,
			UploadedAt:  s.now(),
		}
		if err := s.repo.Create(ctx, a); err != nil {
			_ = s.store.Delete(ctx, key)
			return out, err
		}
		out = append(out, a)
	}

	s.audit.Record(ctx, audit.Entry{
		PatientID:   rec.PatientID,
		ActorID:     doctor.ID,
		ActorName:   doctor.Name,
		ActorRole:   string(doctor.Role),
		Action:      audit.ActionFileUploaded,
		RecordID:    rec.ID,
		RecordTitle: rec.Title,
		Details:     fmt.Sprintf("Uploaded %d file(s)", len(out)),
	})
	return out, nil
}

// List: dueño del registro o médico con grant activo.
func (s *Service) List(ctx context.Context, userID, recordID string) ([]Attachment, error) {
	rec, _, err := s.records.GetAuthorized(ctx, userID, recordID, records.ModeRead)
	if err != nil {
		return nil, translate(err)
	}
	return s.repo.ListByRecord(ctx, rec.ID)
}

// DownloadURL emite una URL temporal (30 min por defecto).
func (s *Service) DownloadURL(ctx context.Context, userID, attachmentID string) (Download, error) {
	a, err := s.authorized(ctx, userID, attachmentID, records.ModeRead)
	if err != nil {
		return Download{}, err
	}

	u, err := s.store.PresignGet(ctx, a.BlobKey, a.FileName, s.urlTTL)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return Download{}, ErrNotFound
		}
		return Download{}, err
	}
	return Download{URL: u, FileName: a.FileName, ExpiresAt: s.now().Add(s.urlTTL)}, nil
}

// Delete: solo médicos con grant activo.
func (s *Service) Delete(ctx context.Context, userID, attachmentID string) error {
	a, err := s.authorized(ctx, userID, attachmentID, records.ModeWrite)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, a.BlobKey); err != nil {
		return err
	}
	return s.repo.Delete(ctx, a.ID)
}

func (s *Service) authorized(ctx context.Context, userID, attachmentID string, mode records.Mode) (Attachment, error) {
	a, err := s.repo.GetByID(ctx, strings.TrimSpace(attachmentID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Attachment{}, ErrNotFound
		}
		return Attachment{}, err
	}
	if _, _, err := s.records.GetAuthorized(ctx, userID, a.RecordID, mode); err != nil {
		return Attachment{}, translate(err)
	}
	return a, nil
}

// BlobKey arma patient-<id>/record-<id>/<uuid><ext>.
func BlobKey(patientID, recordID, id, fileName string) string {
	return fmt.Sprintf("patient-%s/record-%s/%s%s", patientID, recordID, id, strings.ToLower(filepath.Ext(fileName)))
}

func translate(err error) error {
	switch {
	case errors.Is(err, records.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, records.ErrUnauthenticated):
		return ErrUnauthenticated
	case errors.Is(err, records.ErrAccessRequired):
		return ErrAccessRequired
	case errors.Is(err, records.ErrForbidden):
		return ErrForbidden
	case errors.Is(err, records.ErrInvalidInput):
		return ErrInvalidInput
	default:
		return err
	}
}
