package messages

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"consent-records/internal/domain/users"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("user not found")

	// ErrUnauthenticated: el token es válido pero el usuario ya no existe.
	ErrUnauthenticated = errors.New("unauthenticated")
)

const (
	MaxContentLength = 2000
	PreviewLength    = 50
)

type UserLookup interface {
	GetByID(ctx context.Context, id string) (users.User, error)
}

// GrantGraph es la vista de accessgrants.Service que define quién habla con quién.
type GrantGraph interface {
	HasActiveGrant(ctx context.Context, patientID, doctorID string) (bool, error)
	HasAnyGrant(ctx context.Context, patientID, doctorID string) (bool, error)
	Counterparts(ctx context.Context, userID string, role users.Role, onlyActive bool) ([]string, error)
}

type Service struct {
	repo   Repository
	users  UserLookup
	grants GrantGraph
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

func NewService(repo Repository, dir UserLookup, grants GrantGraph, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		users:  dir,
		grants: grants,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Contacts: médicos con grant activo del paciente, o pacientes con grant activo al médico.
func (s *Service) Contacts(ctx context.Context, userID string) ([]Contact, error) {
	u, err := s.actor(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids, err := s.grants.Counterparts(ctx, u.ID, u.Role, true)
	if err != nil {
		return nil, err
	}

	out := make([]Contact, 0, len(ids))
	for _, id := range ids {
		other, err := s.users.GetByID(ctx, id)
		if err != nil {
			continue
		}
		unread, err := s.repo.CountUnreadFrom(ctx, other.ID, u.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, Contact{
			UserID: other.ID,
			Name:   other.Name,
			Role:   string(other.Role),
			Unread: unread,
		})
	}
	return out, nil
}

// Send exige un grant activo entre el par al momento del envío.
func (s *Service) Send(ctx context.Context, senderID, receiverID, content string) (Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, fmt.Errorf("%w: message content cannot be empty", ErrInvalidInput)
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return Message{}, fmt.Errorf("%w: message exceeds %d characters", ErrInvalidInput, MaxContentLength)
	}

	sender, receiver, err := s.pair(ctx, senderID, receiverID, true)
	if err != nil {
		return Message{}, err
	}

	m := Message{
		ID:         uuid.NewString(),
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Content:    content,
		SentAt:     s.now(),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Conversation se puede leer mientras exista o haya existido un grant entre ambos.
// Marca como leído lo recibido de other.
func (s *Service) Conversation(ctx context.Context, userID, otherID string) ([]Message, error) {
	u, other, err := s.pair(ctx, userID, otherID, false)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.MarkRead(ctx, other.ID, u.ID); err != nil {
		return nil, err
	}

	items, err := s.repo.ListConversation(ctx, u.ID, other.ID)
	if err != nil {
		return nil, err
	}
	SortBySentAt(items)
	return items, nil
}

// Conversations lista el último mensaje con cada par, más nuevo primero.
func (s *Service) Conversations(ctx context.Context, userID string) ([]Conversation, error) {
	u, err := s.actor(ctx, userID)
	if err != nil {
		return nil, err
	}

	latest, err := s.repo.LatestPerPeer(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	out := make([]Conversation, 0, len(latest))
	for _, m := range latest {
		otherID := m.SenderID
		if otherID == u.ID {
			otherID = m.ReceiverID
		}
		other, err := s.users.GetByID(ctx, otherID)
		if err != nil {
			continue
		}
		ok, err := s.related(ctx, u, other, false)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		unread, err := s.repo.CountUnreadFrom(ctx, other.ID, u.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, Conversation{
			UserID:        other.ID,
			Name:          other.Name,
			Role:          string(other.Role),
			LastMessage:   Preview(m.Content),
			LastMessageAt: m.SentAt,
			Unread:        unread,
		})
	}
	return out, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	u, err := s.actor(ctx, userID)
	if err != nil {
		return 0, err
	}
	return s.repo.CountUnread(ctx, u.ID)
}

// Preview recorta a PreviewLength runas.
func Preview(content string) string {
	if utf8.RuneCountInString(content) <= PreviewLength {
		return content
	}
	r := []rune(content)
	return string(r[:PreviewLength]) + "..."
}

// SortBySentAt ordena in-place por SentAt y luego por ID.
func SortBySentAt(items []Message) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].SentAt.Equal(items[j].SentAt) {
			return items[i].SentAt.Before(items[j].SentAt)
		}
		return items[i].ID < items[j].ID
	})
}

func (s *Service) user(ctx context.Context, id string) (users.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return users.User{}, ErrInvalidInput
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return users.User{}, ErrNotFound
		}
		return users.User{}, err
	}
	return u, nil
}

// actor es el usuario del token; si ya no existe la sesión no vale.
func (s *Service) actor(ctx context.Context, id string) (users.User, error) {
	u, err := s.user(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return users.User{}, ErrUnauthenticated
	}
	return u, err
}

// pair resuelve ambos usuarios y verifica la relación paciente/médico.
func (s *Service) pair(ctx context.Context, aID, bID string, active bool) (users.User, users.User, error) {
	a, err := s.actor(ctx, aID)
	if err != nil {
		return users.User{}, users.User{}, err
	}
	b, err := s.user(ctx, bID)
	if err != nil {
		return users.User{}, users.User{}, err
	}

	ok, err := s.related(ctx, a, b, active)
	if err != nil {
		return users.User{}, users.User{}, err
	}
	if !ok {
		return users.User{}, users.User{}, ErrForbidden
	}
	return a, b, nil
}

func (s *Service) related(ctx context.Context, a, b users.User, active bool) (bool, error) {
	var patientID, doctorID string
	switch {
	case a.Role == users.RolePatient && b.Role == users.RoleDoctor:
		patientID, doctorID = a.ID, b.ID
	case a.Role == users.RoleDoctor && b.Role == users.RolePatient:
		patientID, doctorID = b.ID, a.ID
	default:
		return false, nil
	}

	if active {
		return s.grants.HasActiveGrant(ctx, patientID, doctorID)
	}
	return s.grants.HasAnyGrant(ctx, patientID, doctorID)
}
