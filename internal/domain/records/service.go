package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"consent-records/internal/domain/audit"
	"consent-records/internal/domain/users"
	"consent-records/internal/platform/logger"
	"consent-records/internal/platform/pagination"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidType    = errors.New("invalid record type")
	ErrForbidden      = errors.New("forbidden")
	ErrAccessRequired = errors.New("access required")
	ErrNotFound       = errors.New("record not found")

	// ErrUnauthenticated: el token es válido pero el usuario ya no existe.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// AccessChecker es el chequeo autoritativo de grants (accessgrants.Service).
type AccessChecker interface {
	HasActiveGrant(ctx context.Context, patientID, doctorID string) (bool, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id string) (users.User, error)
}

type Service struct {
	repo   Repository
	users  UserLookup
	access AccessChecker
	audit  audit.Recorder
	log    logger.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func NewService(repo Repository, dir UserLookup, access AccessChecker, rec audit.Recorder, opts ...Option) *Service {
	if rec == nil {
		rec = audit.Discard
	}
	s := &Service{
		repo:   repo,
		users:  dir,
		access: access,
		audit:  rec,
		log:    logger.Nop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Mode distingue lectura (dueño o médico con grant) de escritura (solo médico con grant).
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

// Authorize resuelve al usuario y verifica su acceso a los datos del paciente.
// El paciente siempre puede leer lo suyo; un médico necesita un grant activo.
func (s *Service) Authorize(ctx context.Context, userID, patientID string, mode Mode) (users.User, error) {
	userID = strings.TrimSpace(userID)
	patientID = strings.TrimSpace(patientID)
	if userID == "" || patientID == "" {
		return users.User{}, ErrInvalidInput
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return users.User{}, ErrUnauthenticated
		}
		return users.User{}, err
	}

	if mode == ModeRead && u.ID == patientID {
		return u, nil
	}
	if u.Role != users.RoleDoctor {
		return users.User{}, ErrForbidden
	}

	ok, err := s.access.HasActiveGrant(ctx, patientID, u.ID)
	if err != nil {
		return users.User{}, err
	}
	if !ok {
		return users.User{}, ErrAccessRequired
	}
	return u, nil
}

type Query struct {
	Type string
	Page pagination.Params
}

// View lista registros del paciente; nunca devuelve vacío para ocultar falta de acceso.
func (s *Service) View(ctx context.Context, viewerID, patientID string, q Query) ([]Record, int, error) {
	viewer, err := s.Authorize(ctx, viewerID, patientID, ModeRead)
	if err != nil {
		return nil, 0, err
	}

	var t RecordType
	if strings.TrimSpace(q.Type) != "" {
		t, err = ParseRecordType(q.Type)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	p := q.Page.Normalize()
	items, total, err := s.repo.ListByPatient(ctx, strings.TrimSpace(patientID), ListFilter{
		Type:   t,
		Offset: p.Offset(),
		Limit:  p.Limit(),
	})
	if err != nil {
		return nil, 0, err
	}

	// Solo la primera página de un médico queda auditada.
	if viewer.ID != patientID && p.Page == 0 {
		s.audit.Record(ctx, audit.Entry{
			PatientID:   patientID,
			PatientName: s.patientName(ctx, patientID),
			ActorID:     viewer.ID,
			ActorName:   viewer.Name,
			ActorRole:   string(viewer.Role),
			Action:      audit.ActionRecordViewed,
			Details:     fmt.Sprintf("Viewed %d of %d records", len(items), total),
		})
	}
	return items, total, nil
}

type CreateInput struct {
	Type      string
	Title     string
	Diagnosis string
	Content   string
}

// Add crea un registro a nombre del médico. Requiere grant activo al momento del request.
func (s *Service) Add(ctx context.Context, doctorID, patientID string, in CreateInput) (Record, error) {
	doctor, err := s.Authorize(ctx, doctorID, patientID, ModeWrite)
	if err != nil {
		return Record{}, err
	}

	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" || content == "" {
		return Record{}, fmt.Errorf("%w: title and content are required", ErrInvalidInput)
	}
	t, err := ParseRecordType(in.Type)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	rec := Record{
		ID:                uuid.NewString(),
		PatientID:         strings.TrimSpace(patientID),
		CreatedByDoctorID: doctor.ID,
		CreatedByName:     doctor.Name,
		Type:              t,
		Title:             title,
		Diagnosis:         strings.TrimSpace(in.Diagnosis),
		Content:           content,
		CreatedAt:         s.now(),
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return Record{}, err
	}

	s.audit.Record(ctx, audit.Entry{
		PatientID:   rec.PatientID,
		PatientName: s.patientName(ctx, rec.PatientID),
		ActorID:     doctor.ID,
		ActorName:   doctor.Name,
		ActorRole:   string(doctor.Role),
		Action:      audit.ActionRecordAdded,
		RecordID:    rec.ID,
		RecordTitle: rec.Title,
		Details:     fmt.Sprintf("Added %s record", rec.Type),
	})
	return rec, nil
}

// GetAuthorized devuelve el registro si el usuario tiene acceso en ese modo.
func (s *Service) GetAuthorized(ctx context.Context, userID, recordID string, mode Mode) (Record, users.User, error) {
	rec, err := s.repo.GetByID(ctx, strings.TrimSpace(recordID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, users.User{}, ErrNotFound
		}
		return Record{}, users.User{}, err
	}
	u, err := s.Authorize(ctx, userID, rec.PatientID, mode)
	if err != nil {
		return Record{}, users.User{}, err
	}
	return rec, u, nil
}

// patientName es solo para la auditoría: si falla se audita igual, sin nombre.
func (s *Service) patientName(ctx context.Context, patientID string) string {
	p, err := s.users.GetByID(ctx, patientID)
	if err != nil {
		s.log.Warn("patient lookup for audit failed", map[string]any{
			"patient_id": patientID,
			"err":        err,
		})
		return ""
	}
	return p.Name
}
