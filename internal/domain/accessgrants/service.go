package accessgrants

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"consent-records/internal/domain/audit"
	"consent-records/internal/domain/users"
	"consent-records/internal/platform/pagination"
	"consent-records/internal/platform/validation"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrBadState       = errors.New("invalid state")
	ErrDoctorNotFound = errors.New("no doctor registered with that email")
	ErrNotDoctor      = errors.New("user is not a doctor")

	// ErrUnauthenticated: el token es válido pero el usuario ya no existe.
	ErrUnauthenticated = errors.New("unauthenticated")
)

const DefaultGrantDays = 30

// UserDirectory evita depender del servicio de usuarios completo.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (users.User, error)
	GetByEmail(ctx context.Context, email string) (users.User, error)
}

type Service struct {
	repo  Repository
	users UserDirectory
	audit audit.Recorder
	now   func() time.Time

	defaultTTL time.Duration
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDefaultDays fija la duración de un grant nuevo (1..365).
func WithDefaultDays(days int) Option {
	return func(s *Service) {
		if validation.ValidateExtendDays(days) == nil {
			s.defaultTTL = time.Duration(days) * Day
		}
	}
}

func NewService(repo Repository, dir UserDirectory, rec audit.Recorder, opts ...Option) *Service {
	if rec == nil {
		rec = audit.Discard
	}
	s := &Service{
		repo:       repo,
		users:      dir,
		audit:      rec,
		now:        time.Now,
		defaultTTL: DefaultGrantDays * Day,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// View es el grant enriquecido con la contraparte y la evaluación de expiración.
type View struct {
	Grant
	CounterpartName  string
	CounterpartEmail string
	Status           Status
	Expiry           Expiry
}

// Grant otorga acceso al médico con ese email. Si ya hay uno activo para el par,
// lo renueva en el lugar: mismo ID, ExpiresAt = max(actual, now+default).
func (s *Service) Grant(ctx context.Context, patientID, doctorEmail string) (Grant, error) {
	if err := validation.ValidateEmail(doctorEmail); err != nil {
		return Grant{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	patient, err := s.requireRole(ctx, patientID, users.RolePatient)
	if err != nil {
		return Grant{}, err
	}

	doctor, err := s.users.GetByEmail(ctx, validation.NormalizeEmail(doctorEmail))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return Grant{}, ErrDoctorNotFound
		}
		return Grant{}, err
	}
	if doctor.Role != users.RoleDoctor {
		return Grant{}, ErrNotDoctor
	}
	if doctor.ID == patient.ID {
		return Grant{}, fmt.Errorf("%w: cannot grant access to yourself", ErrInvalidInput)
	}

	now := s.now()
	g, refreshed, err := s.repo.GrantOrRefresh(ctx, Grant{
		ID:          uuid.NewString(),
		PatientID:   patient.ID,
		DoctorID:    doctor.ID,
		DoctorEmail: doctor.Email,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.defaultTTL),
	}, now)
	if err != nil {
		return Grant{}, err
	}

	if refreshed {
		s.record(ctx, audit.ActionAccessRefreshed, patient, patient,
			fmt.Sprintf("Access for Dr. %s refreshed until %s", doctor.Name, g.ExpiresAt.Format(time.RFC3339)))
		return g, nil
	}
	s.record(ctx, audit.ActionAccessGranted, patient, patient,
		fmt.Sprintf("Granted access to Dr. %s", doctor.Name))
	return g, nil
}

// Extend suma days*24h al ExpiresAt vigente. Sin mutación si falla.
func (s *Service) Extend(ctx context.Context, grantID, patientID string, days int) (Grant, error) {
	if err := validation.ValidateExtendDays(days); err != nil {
		return Grant{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	g, err := s.ownedGrant(ctx, grantID, patientID)
	if err != nil {
		return Grant{}, err
	}

	now := s.now()
	if !g.ActiveAt(now) {
		return Grant{}, stateError(g, now)
	}

	g, err = s.repo.Extend(ctx, g.ID, time.Duration(days)*Day, now)
	if err != nil {
		return Grant{}, s.mutationError(ctx, grantID, now, err)
	}

	s.recordByIDs(ctx, audit.ActionAccessExtended, g, fmt.Sprintf("Access extended by %d days", days))
	return g, nil
}

// Revoke es terminal: un grant revocado o vencido no se puede revocar de nuevo.
func (s *Service) Revoke(ctx context.Context, grantID, patientID string) (Grant, error) {
	g, err := s.ownedGrant(ctx, grantID, patientID)
	if err != nil {
		return Grant{}, err
	}

	now := s.now()
	if !g.ActiveAt(now) {
		return Grant{}, stateError(g, now)
	}

	g, err = s.repo.Revoke(ctx, g.ID, now)
	if err != nil {
		return Grant{}, s.mutationError(ctx, grantID, now, err)
	}

	s.recordByIDs(ctx, audit.ActionAccessRevoked, g, "Access revoked by patient")
	return g, nil
}

// ListActive devuelve los grants activos del paciente en orden de creación.
func (s *Service) ListActive(ctx context.Context, patientID string) ([]View, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ErrInvalidInput
	}

	items, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]View, 0, len(items))
	for _, g := range items {
		if !g.ActiveAt(now) {
			continue
		}
		v := s.view(g, now)
		if d, err := s.users.GetByID(ctx, g.DoctorID); err == nil {
			v.CounterpartName = d.Name
			v.CounterpartEmail = d.Email
		} else {
			v.CounterpartEmail = g.DoctorEmail
		}
		out = append(out, v)
	}
	return out, nil
}

// ListPatients: pacientes con grant activo al médico, ExpiresAt DESC.
func (s *Service) ListPatients(ctx context.Context, doctorID string, p pagination.Params) ([]View, int, error) {
	doctor, err := s.requireRole(ctx, doctorID, users.RoleDoctor)
	if err != nil {
		return nil, 0, err
	}

	items, err := s.repo.ListByDoctor(ctx, doctor.ID)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	active := make([]Grant, 0, len(items))
	for _, g := range items {
		if g.ActiveAt(now) {
			active = append(active, g)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].ExpiresAt.After(active[j].ExpiresAt)
	})

	p = p.Normalize()
	page := pagination.Slice(active, p)
	out := make([]View, 0, len(page))
	for _, g := range page {
		v := s.view(g, now)
		if pt, err := s.users.GetByID(ctx, g.PatientID); err == nil {
			v.CounterpartName = pt.Name
			v.CounterpartEmail = pt.Email
		}
		out = append(out, v)
	}
	return out, len(active), nil
}

// HasActiveGrant se evalúa con el reloj del servidor en cada request.
func (s *Service) HasActiveGrant(ctx context.Context, patientID, doctorID string) (bool, error) {
	_, found, err := s.activeForPair(ctx, patientID, doctorID, s.now())
	return found, err
}

// HasAnyGrant incluye revocados y vencidos (historial de la relación).
func (s *Service) HasAnyGrant(ctx context.Context, patientID, doctorID string) (bool, error) {
	items, err := s.repo.ListByPair(ctx, patientID, doctorID)
	if err != nil {
		return false, err
	}
	return len(items) > 0, nil
}

// Counterparts devuelve los IDs del otro lado de cada grant del usuario.
// onlyActive filtra por grants activos ahora.
func (s *Service) Counterparts(ctx context.Context, userID string, role users.Role, onlyActive bool) ([]string, error) {
	var (
		items []Grant
		err   error
	)
	switch role {
	case users.RolePatient:
		items, err = s.repo.ListByPatient(ctx, userID)
	case users.RoleDoctor:
		items, err = s.repo.ListByDoctor(ctx, userID)
	default:
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	seen := map[string]struct{}{}
	out := make([]string, 0, len(items))
	for _, g := range items {
		if onlyActive && !g.ActiveAt(now) {
			continue
		}
		other := g.DoctorID
		if role == users.RoleDoctor {
			other = g.PatientID
		}
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		out = append(out, other)
	}
	return out, nil
}

// SweepExpired audita una sola vez cada grant vencido y lo marca. No cambia permisos.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	now := s.now()
	items, err := s.repo.ListExpiredUnlogged(ctx, now)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, g := range items {
		if err := ctx.Err(); err != nil {
			return n, err
		}

		// Sellar primero: con varias instancias solo la que sella audita.
		claimed, err := s.repo.MarkExpiryLogged(ctx, g.ID, now)
		if err != nil {
			return n, err
		}
		if !claimed {
			continue
		}

		patient, perr := s.users.GetByID(ctx, g.PatientID)
		doctor, derr := s.users.GetByID(ctx, g.DoctorID)
		if perr == nil && derr == nil {
			s.audit.Record(ctx, audit.Entry{
				PatientID:   patient.ID,
				PatientName: patient.Name,
				ActorID:     patient.ID,
				ActorName:   patient.Name,
				ActorRole:   "SYSTEM",
				Action:      audit.ActionAccessExpired,
				Details:     fmt.Sprintf("Access to Dr. %s expired automatically", doctor.Name),
			})
			s.audit.Record(ctx, audit.Entry{
				PatientID:   patient.ID,
				PatientName: patient.Name,
				ActorID:     doctor.ID,
				ActorName:   doctor.Name,
				ActorRole:   "SYSTEM",
				Action:      audit.ActionAccessExpired,
				Details:     fmt.Sprintf("Access to %s's records expired automatically", patient.Name),
			})
		}
		n++
	}
	return n, nil
}

func (s *Service) view(g Grant, now time.Time) View {
	return View{
		Grant:  g,
		Status: g.StatusAt(now),
		Expiry: Evaluate(g.ExpiresAt, now),
	}
}

func (s *Service) activeForPair(ctx context.Context, patientID, doctorID string, now time.Time) (Grant, bool, error) {
	items, err := s.repo.ListByPair(ctx, patientID, doctorID)
	if err != nil {
		return Grant{}, false, err
	}
	var (
		winner Grant
		found  bool
	)
	for _, g := range items {
		if !g.ActiveAt(now) {
			continue
		}
		if !found || g.ExpiresAt.After(winner.ExpiresAt) {
			winner = g
			found = true
		}
	}
	return winner, found, nil
}

func (s *Service) ownedGrant(ctx context.Context, grantID, patientID string) (Grant, error) {
	grantID = strings.TrimSpace(grantID)
	patientID = strings.TrimSpace(patientID)
	if grantID == "" || patientID == "" {
		return Grant{}, ErrInvalidInput
	}

	g, err := s.repo.GetByID(ctx, grantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Grant{}, ErrNotFound
		}
		return Grant{}, err
	}
	if g.PatientID != patientID {
		return Grant{}, ErrForbidden
	}
	return g, nil
}

func stateError(g Grant, now time.Time) error {
	return fmt.Errorf("%w: grant is %s", ErrBadState, strings.ToLower(string(g.StatusAt(now))))
}

// mutationError explica un ErrBadState del repo con el estado que ganó la carrera.
func (s *Service) mutationError(ctx context.Context, grantID string, now time.Time, err error) error {
	if !errors.Is(err, ErrBadState) {
		return err
	}
	if cur, gerr := s.repo.GetByID(ctx, strings.TrimSpace(grantID)); gerr == nil {
		return stateError(cur, now)
	}
	return err
}

func (s *Service) requireRole(ctx context.Context, userID string, role users.Role) (users.User, error) {
	u, err := s.users.GetByID(ctx, strings.TrimSpace(userID))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return users.User{}, ErrUnauthenticated
		}
		return users.User{}, err
	}
	if u.Role != role {
		return users.User{}, ErrForbidden
	}
	return u, nil
}

func (s *Service) record(ctx context.Context, action audit.Action, patient, actor users.User, details string) {
	s.audit.Record(ctx, audit.Entry{
		PatientID:   patient.ID,
		PatientName: patient.Name,
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		ActorRole:   string(actor.Role),
		Action:      action,
		Details:     details,
	})
}

func (s *Service) recordByIDs(ctx context.Context, action audit.Action, g Grant, details string) {
	patient, err := s.users.GetByID(ctx, g.PatientID)
	if err != nil {
		patient = users.User{ID: g.PatientID, Role: users.RolePatient}
	}
	if d, err := s.users.GetByID(ctx, g.DoctorID); err == nil {
		details = fmt.Sprintf("%s (Dr. %s)", details, d.Name)
	}
	s.record(ctx, action, patient, patient, details)
}
