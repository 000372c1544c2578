package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"consent-records/internal/domain/users"
	"consent-records/internal/platform/logger"
	"consent-records/internal/platform/pagination"

	"github.com/google/uuid"
)

var (
	ErrForbidden = errors.New("forbidden")
	ErrNotFound  = errors.New("not found")
)

// Recorder es lo que consumen los demás módulos. Registrar nunca falla hacia afuera.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

type discard struct{}

func (discard) Record(context.Context, Entry) {}

// Discard descarta las entradas.
var Discard Recorder = discard{}

// UserLookup evita que audit dependa del servicio de usuarios completo.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (users.User, error)
}

type Service struct {
	repo  Repository
	users UserLookup
	log   logger.Logger
	now   func() time.Time
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

func NewService(repo Repository, users UserLookup, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		users: users,
		log:   logger.Nop(),
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Record persiste la entrada; si falla solo se loguea.
func (s *Service) Record(ctx context.Context, e Entry) {
	if strings.TrimSpace(e.ID) == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	if err := s.repo.Create(ctx, e); err != nil {
		s.log.Warn("audit write failed", map[string]any{
			"action":     string(e.Action),
			"patient_id": e.PatientID,
			"actor_id":   e.ActorID,
			"err":        err,
		})
	}
}

// List: el paciente ve lo ocurrido sobre sus datos; el médico, lo que hizo él.
func (s *Service) List(ctx context.Context, userID string, p pagination.Params) ([]Entry, int, error) {
	u, err := s.users.GetByID(ctx, strings.TrimSpace(userID))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}
	p = p.Normalize()

	switch u.Role {
	case users.RolePatient:
		return s.repo.ListByPatient(ctx, u.ID, p.Offset(), p.Limit())
	case users.RoleDoctor:
		return s.repo.ListByActor(ctx, u.ID, p.Offset(), p.Limit())
	default:
		return nil, 0, ErrForbidden
	}
}
