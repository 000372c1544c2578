package messages

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"consent-records/internal/domain/users"
)

type testRepo struct {
	items []Message
}

func (r *testRepo) Create(ctx context.Context, m Message) error {
	r.items = append(r.items, m)
	return nil
}

func between(m Message, a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

func (r *testRepo) ListConversation(ctx context.Context, a, b string) ([]Message, error) {
	out := []Message{}
	for _, m := range r.items {
		if between(m, a, b) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *testRepo) MarkRead(ctx context.Context, from, to string) (int, error) {
	n := 0
	for i := range r.items {
		if r.items[i].SenderID == from && r.items[i].ReceiverID == to && !r.items[i].Read {
			r.items[i].Read = true
			n++
		}
	}
	return n, nil
}

func (r *testRepo) LatestPerPeer(ctx context.Context, userID string) ([]Message, error) {
	latest := map[string]Message{}
	for _, m := range r.items {
		peer := ""
		switch userID {
		case m.SenderID:
			peer = m.ReceiverID
		case m.ReceiverID:
			peer = m.SenderID
		default:
			continue
		}
		if cur, ok := latest[peer]; !ok || m.SentAt.After(cur.SentAt) {
			latest[peer] = m
		}
	}
	out := make([]Message, 0, len(latest))
	for _, m := range latest {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	return out, nil
}

func (r *testRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	n := 0
	for _, m := range r.items {
		if m.ReceiverID == userID && !m.Read {
			n++
		}
	}
	return n, nil
}

func (r *testRepo) CountUnreadFrom(ctx context.Context, from, to string) (int, error) {
	n := 0
	for _, m := range r.items {
		if m.SenderID == from && m.ReceiverID == to && !m.Read {
			n++
		}
	}
	return n, nil
}

type testDirectory map[string]users.User

func (d testDirectory) GetByID(ctx context.Context, id string) (users.User, error) {
	u, ok := d[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

// testGraph: pair "patient|doctor" -> activo (true) o solo histórico (false).
type testGraph struct {
	pairs map[string]bool
}

func (g *testGraph) HasActiveGrant(ctx context.Context, patientID, doctorID string) (bool, error) {
	return g.pairs[patientID+"|"+doctorID], nil
}

func (g *testGraph) HasAnyGrant(ctx context.Context, patientID, doctorID string) (bool, error) {
	_, ok := g.pairs[patientID+"|"+doctorID]
	return ok, nil
}

func (g *testGraph) Counterparts(ctx context.Context, userID string, role users.Role, onlyActive bool) ([]string, error) {
	out := []string{}
	for k, active := range g.pairs {
		if onlyActive && !active {
			continue
		}
		parts := strings.SplitN(k, "|", 2)
		switch {
		case role == users.RolePatient && parts[0] == userID:
			out = append(out, parts[1])
		case role == users.RoleDoctor && parts[1] == userID:
			out = append(out, parts[0])
		}
	}
	sort.Strings(out)
	return out, nil
}

type fixture struct {
	svc   *Service
	repo  *testRepo
	graph *testGraph
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := testDirectory{
		"p1": {ID: "p1", Name: "Ana", Role: users.RolePatient},
		"p2": {ID: "p2", Name: "Beto", Role: users.RolePatient},
		"d1": {ID: "d1", Name: "Dr. House", Role: users.RoleDoctor},
		"d2": {ID: "d2", Name: "Dr. Wilson", Role: users.RoleDoctor},
		"h1": {ID: "h1", Name: "Central", Role: users.RoleHospital},
	}
	f := &fixture{
		repo:  &testRepo{},
		graph: &testGraph{pairs: map[string]bool{"p1|d1": true, "p2|d1": true, "p1|d2": false}},
		now:   time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.repo, dir, f.graph, WithClock(func() time.Time { return f.now }))
	return f
}

func (f *fixture) tick() { f.now = f.now.Add(time.Second) }

func TestSend_RequiresActiveGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.svc.Send(ctx, "p1", "d1", "  hola doctor  ")
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if m.Content != "hola doctor" || m.SenderID != "p1" || m.ReceiverID != "d1" || m.Read {
		t.Fatalf("unexpected message: %+v", m)
	}

	for _, c := range []struct{ from, to string }{
		{"p1", "d2"}, // solo grant histórico
		{"p1", "p2"}, // paciente con paciente
		{"h1", "p1"}, // rol sin mensajería
	} {
		if _, err := f.svc.Send(ctx, c.from, c.to, "x"); !errors.Is(err, ErrForbidden) {
			t.Fatalf("%s->%s: expected ErrForbidden, got %v", c.from, c.to, err)
		}
	}

	if _, err := f.svc.Send(ctx, "p1", "nobody", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// Remitente borrado con token vigente.
	if _, err := f.svc.Send(ctx, "nobody", "d1", "x"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := f.svc.UnreadCount(ctx, "nobody"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestSend_ValidatesContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Send(ctx, "p1", "d1", "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty, got %v", err)
	}
	if _, err := f.svc.Send(ctx, "p1", "d1", strings.Repeat("a", MaxContentLength+1)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for long content, got %v", err)
	}
	if _, err := f.svc.Send(ctx, "p1", "d1", strings.Repeat("ñ", MaxContentLength)); err != nil {
		t.Fatalf("2000 runes must be accepted: %v", err)
	}
	if len(f.repo.items) != 1 {
		t.Fatalf("expected only the valid message stored, got %d", len(f.repo.items))
	}
}

func TestConversation_OrderAndMarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _ = f.svc.Send(ctx, "p1", "d1", "uno")
	f.tick()
	_, _ = f.svc.Send(ctx, "d1", "p1", "dos")
	f.tick()
	_, _ = f.svc.Send(ctx, "d1", "p1", "tres")

	// El repo devuelve desordenado; el servicio ordena.
	f.repo.items[0], f.repo.items[2] = f.repo.items[2], f.repo.items[0]

	if n, _ := f.svc.UnreadCount(ctx, "p1"); n != 2 {
		t.Fatalf("expected 2 unread, got %d", n)
	}

	items, err := f.svc.Conversation(ctx, "p1", "d1")
	if err != nil {
		t.Fatalf("Conversation error: %v", err)
	}
	got := []string{}
	for _, m := range items {
		got = append(got, m.Content)
	}
	if strings.Join(got, ",") != "uno,dos,tres" {
		t.Fatalf("unexpected order: %v", got)
	}
	if n, _ := f.svc.UnreadCount(ctx, "p1"); n != 0 {
		t.Fatalf("expected 0 unread after opening, got %d", n)
	}
	if n, _ := f.svc.UnreadCount(ctx, "d1"); n != 1 {
		t.Fatalf("doctor unread must be untouched, got %d", n)
	}
}

func TestConversation_HistoricalGrantStillReadable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.graph.pairs["p1|d2"] = true
	_, _ = f.svc.Send(ctx, "d2", "p1", "resultados listos")
	f.graph.pairs["p1|d2"] = false

	items, err := f.svc.Conversation(ctx, "p1", "d2")
	if err != nil {
		t.Fatalf("expected historical conversation readable, got %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 message, got %d", len(items))
	}
	if _, err := f.svc.Send(ctx, "p1", "d2", "gracias"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("sending after expiry must fail, got %v", err)
	}
	if _, err := f.svc.Conversation(ctx, "p2", "d2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("no grant ever: expected ErrForbidden, got %v", err)
	}
}

func TestContactsAndConversations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _ = f.svc.Send(ctx, "p1", "d1", strings.Repeat("x", 60))
	f.tick()
	_, _ = f.svc.Send(ctx, "p2", "d1", "corto")

	contacts, err := f.svc.Contacts(ctx, "d1")
	if err != nil {
		t.Fatalf("Contacts error: %v", err)
	}
	if len(contacts) != 2 || contacts[0].UserID != "p1" || contacts[0].Unread != 1 {
		t.Fatalf("unexpected contacts: %+v", contacts)
	}

	pc, _ := f.svc.Contacts(ctx, "p1")
	if len(pc) != 1 || pc[0].UserID != "d1" {
		t.Fatalf("patient contacts must only include active doctors: %+v", pc)
	}

	convs, err := f.svc.Conversations(ctx, "d1")
	if err != nil {
		t.Fatalf("Conversations error: %v", err)
	}
	if len(convs) != 2 || convs[0].UserID != "p2" {
		t.Fatalf("expected newest first, got %+v", convs)
	}
	if convs[1].LastMessage != strings.Repeat("x", PreviewLength)+"..." {
		t.Fatalf("unexpected preview %q", convs[1].LastMessage)
	}
}

func TestSortBySentAt(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []Message{
		{ID: "c", SentAt: base.Add(2 * time.Second)},
		{ID: "b", SentAt: base},
		{ID: "a", SentAt: base},
	}
	SortBySentAt(items)
	if items[0].ID != "a" || items[1].ID != "b" || items[2].ID != "c" {
		t.Fatalf("unexpected order: %v", items)
	}
}
