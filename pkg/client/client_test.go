package client_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"consent-records/internal/adapters/auth/jwtauth"
	"consent-records/internal/router"
	"consent-records/pkg/client"
)

const testMaxUpload = 64

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func newAPI(t *testing.T) (*httptest.Server, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)}

	tokens, err := jwtauth.New(jwtauth.Config{
		SigningKey: []byte("client-test-key"),
		TTL:        time.Hour,
		Now:        clock.Now,
	})
	if err != nil {
		t.Fatalf("jwtauth.New: %v", err)
	}

	ts := httptest.NewServer(router.NewRouter(router.Options{
		AuthVerifier:   tokens,
		TokenIssuer:    tokens,
		Clock:          clock.Now,
		MaxUploadBytes: testMaxUpload,
	}))
	t.Cleanup(ts.Close)
	return ts, clock
}

func signup(t *testing.T, baseURL, name, email, role string) (*client.Client, client.Identity) {
	t.Helper()
	ctx := context.Background()

	c, err := client.New(baseURL)
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	if _, err := c.Register(ctx, client.Registration{Name: name, Email: email, Password: "secret1", Role: role}); err != nil {
		t.Fatalf("Register %s: %v", email, err)
	}
	id, err := c.Login(ctx, email, "secret1")
	if err != nil {
		t.Fatalf("Login %s: %v", email, err)
	}
	return c, id
}

func TestGrantAppearsInAccessesWithDefaultExpiry(t *testing.T) {
	ts, clock := newAPI(t)
	ctx := context.Background()

	patient, _ := signup(t, ts.URL, "Ana Paciente", "ana@example.com", "PATIENT")
	_, doc := signup(t, ts.URL, "Gregory House", "house@example.com", "DOCTOR")

	g, err := patient.GrantAccess(ctx, "  House@Example.com ")
	if err != nil {
		t.Fatalf("GrantAccess: %v", err)
	}

	items, err := patient.Accesses(ctx)
	if err != nil {
		t.Fatalf("Accesses: %v", err)
	}
	if len(items) != 1 || items[0].ID != g.ID || items[0].DoctorID != doc.UserID {
		t.Fatalf("unexpected accesses: %+v", items)
	}
	want := clock.Now().Add(30 * 24 * time.Hour)
	if d := items[0].ExpiresAt.Sub(want); d < -time.Second || d > time.Second {
		t.Fatalf("expected expiresAt ~ %v, got %v", want, items[0].ExpiresAt)
	}
	if items[0].Status != "ACTIVE" {
		t.Fatalf("expected ACTIVE, got %s", items[0].Status)
	}
	if d, class := items[0].ExpiryAt(clock.Now()); d != 30 || class != "healthy" {
		t.Fatalf("expected 30 healthy, got %d %s", d, class)
	}
	if d, class := items[0].ExpiryAt(clock.Now().Add(25 * 24 * time.Hour)); d != 5 || class != "expiring_soon" {
		t.Fatalf("expected 5 expiring_soon, got %d %s", d, class)
	}

	ext, err := patient.ExtendAccess(ctx, g.ID, 7)
	if err != nil {
		t.Fatalf("ExtendAccess: %v", err)
	}
	if !ext.ExpiresAt.Equal(items[0].ExpiresAt.Add(7 * 24 * time.Hour)) {
		t.Fatalf("extend must add to previous expiry: %v -> %v", items[0].ExpiresAt, ext.ExpiresAt)
	}
}

func TestRevokeBlocksDoctor(t *testing.T) {
	ts, _ := newAPI(t)
	ctx := context.Background()

	patient, pat := signup(t, ts.URL, "Ana Paciente", "ana@example.com", "PATIENT")
	doctor, _ := signup(t, ts.URL, "Gregory House", "house@example.com", "DOCTOR")

	g, err := patient.GrantAccess(ctx, "house@example.com")
	if err != nil {
		t.Fatalf("GrantAccess: %v", err)
	}
	if _, err := doctor.PatientRecords(ctx, pat.UserID, client.RecordQuery{}); err != nil {
		t.Fatalf("doctor must read while active: %v", err)
	}

	if _, err := patient.RevokeAccess(ctx, g.ID); err != nil {
		t.Fatalf("RevokeAccess: %v", err)
	}

	_, err = doctor.PatientRecords(ctx, pat.UserID, client.RecordQuery{})
	var ae *client.AuthorizationError
	if !errors.As(err, &ae) || !ae.AccessRequired() {
		t.Fatalf("expected AuthorizationError(access required), got %v", err)
	}

	_, err = patient.RevokeAccess(ctx, g.ID)
	var ce *client.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError revoking twice, got %v", err)
	}

	pats, err := doctor.Patients(ctx, 0, 10)
	if err != nil {
		t.Fatalf("Patients: %v", err)
	}
	if pats.TotalElements != 0 {
		t.Fatalf("revoked patient must not be listed: %+v", pats)
	}
}

func TestVitalsRecordRoundTrip(t *testing.T) {
	ts, _ := newAPI(t)
	ctx := context.Background()

	patient, pat := signup(t, ts.URL, "Ana Paciente", "ana@example.com", "PATIENT")
	doctor, doc := signup(t, ts.URL, "Gregory House", "house@example.com", "DOCTOR")

	if _, err := patient.GrantAccess(ctx, "house@example.com"); err != nil {
		t.Fatalf("GrantAccess: %v", err)
	}

	id, err := doctor.CreateRecord(ctx, pat.UserID, client.NewRecord{
		Type:    "vitals",
		Title:   "Control mensual",
		Content: "TA 120/80, FC 70",
	})
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}

	page, err := patient.MyRecords(ctx, client.RecordQuery{Type: "VITALS"})
	if err != nil {
		t.Fatalf("MyRecords: %v", err)
	}
	if page.TotalElements != 1 || len(page.Content) != 1 {
		t.Fatalf("expected one record, got %+v", page)
	}
	r := page.Content[0]
	if r.ID != id || r.Type != "VITALS" || r.Title != "Control mensual" || r.Content != "TA 120/80, FC 70" || r.CreatedByID != doc.UserID {
		t.Fatalf("unexpected record: %+v", r)
	}

	other, err := patient.MyRecords(ctx, client.RecordQuery{Type: "NOTE"})
	if err != nil || other.TotalElements != 0 {
		t.Fatalf("type filter must exclude VITALS: %+v %v", other, err)
	}
}

func TestCreateRecordWithFiles_PartialFailure(t *testing.T) {
	ts, _ := newAPI(t)
	ctx := context.Background()

	patient, pat := signup(t, ts.URL, "Ana Paciente", "ana@example.com", "PATIENT")
	doctor, _ := signup(t, ts.URL, "Gregory House", "house@example.com", "DOCTOR")
	if _, err := patient.GrantAccess(ctx, "house@example.com"); err != nil {
		t.Fatalf("GrantAccess: %v", err)
	}

	big := client.File{Name: "scan.pdf", ContentType: "application/pdf", Body: strings.NewReader(strings.Repeat("x", testMaxUpload*4))}
	id, _, err := doctor.CreateRecordWithFiles(ctx, pat.UserID, client.NewRecord{Type: "IMAGING", Title: "RX", Content: "tórax"}, []client.File{big})

	var pf *client.PartialFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected PartialFailure, got %v", err)
	}
	if pf.RecordID == "" || pf.RecordID != id {
		t.Fatalf("partial failure must carry the record id: %+v", pf)
	}
	var api *client.APIError
	if !errors.As(err, &api) || api.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 underneath, got %v", pf.Err)
	}

	page, err := patient.MyRecords(ctx, client.RecordQuery{})
	if err != nil {
		t.Fatalf("MyRecords: %v", err)
	}
	if page.TotalElements != 1 || page.Content[0].ID != id {
		t.Fatalf("record must remain queryable after upload failure: %+v", page)
	}
	files, err := doctor.Files(ctx, id)
	if err != nil || len(files) != 0 {
		t.Fatalf("expected no attachments, got %+v %v", files, err)
	}
}

func TestUploadAndDownload(t *testing.T) {
	ts, _ := newAPI(t)
	ctx := context.Background()

	patient, pat := signup(t, ts.URL, "Ana Paciente", "ana@example.com", "PATIENT")
	doctor, _ := signup(t, ts.URL, "Gregory House", "house@example.com", "DOCTOR")
	if _, err := patient.GrantAccess(ctx, "house@example.com"); err != nil {
		t.Fatalf("GrantAccess: %v", err)
	}

	id, atts, err := doctor.CreateRecordWithFiles(ctx, pat.UserID,
		client.NewRecord{Type: "LAB_RESULT", Title: "Hemograma", Content: "normal"},
		[]client.File{{Name: "lab.txt", ContentType: "text/plain", Body: strings.NewReader("hb 14")}},
	)
	if err != nil {
		t.Fatalf("CreateRecordWithFiles: %v", err)
	}
	if len(atts) != 1 || atts[0].RecordID != id || atts[0].FileSize != 5 {
		t.Fatalf("unexpected attachments: %+v", atts)
	}

	dl, err := patient.DownloadURL(ctx, atts[0].ID)
	if err != nil {
		t.Fatalf("DownloadURL: %v", err)
	}
	res, err := http.Get(ts.URL + dl.URL)
	if err != nil {
		t.Fatalf("GET download: %v", err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK || string(body) != "hb 14" {
		t.Fatalf("unexpected download: %d %q", res.StatusCode, body)
	}

	if err := doctor.DeleteFile(ctx, atts[0].ID); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	_, err = patient.DownloadURL(ctx, atts[0].ID)
	var nf *client.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError after delete, got %v", err)
	}
}

func TestValidationRejectsBeforeNetwork(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c, err := client.New(ts.URL)
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	ctx := context.Background()

	calls := map[string]func() error{
		"grant bad email": func() error { _, err := c.GrantAccess(ctx, "not-an-email"); return err },
		"extend zero":     func() error { _, err := c.ExtendAccess(ctx, "g1", 0); return err },
		"extend 366":      func() error { _, err := c.ExtendAccess(ctx, "g1", 366); return err },
		"weak password":   func() error { _, err := c.Register(ctx, client.Registration{Name: "Ana", Email: "a@b.co", Password: "abcdef"}); return err },
		"empty message":   func() error { _, err := c.SendMessage(ctx, "u1", "   "); return err },
		"bad type":        func() error { _, err := c.MyRecords(ctx, client.RecordQuery{Type: "XRAY"}); return err },
		"no title":        func() error { _, err := c.CreateRecord(ctx, "p1", client.NewRecord{Content: "x"}); return err },
	}
	for name, call := range calls {
		var ve *client.ValidationError
		if err := call(); !errors.As(err, &ve) {
			t.Fatalf("%s: expected ValidationError, got %v", name, err)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Fatalf("validation errors must not reach the network, got %d requests", n)
	}
}

func TestUnauthorizedClearsSession(t *testing.T) {
	ts, clock := newAPI(t)
	ctx := context.Background()

	c, id := signup(t, ts.URL, "Ana Paciente", "ana@example.com", "PATIENT")
	if id.Role != "PATIENT" || !c.Session().Active(clock.Now()) {
		t.Fatalf("expected active session after login: %+v", id)
	}
	if _, err := c.Me(ctx); err != nil {
		t.Fatalf("Me: %v", err)
	}

	_, err := c.Login(ctx, "ana@example.com", "wrong1")
	var ae *client.AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError on bad login, got %v", err)
	}
	if c.Session().Token() != "" {
		t.Fatalf("401 must clear the session")
	}

	if _, err := c.Me(ctx); !errors.As(err, &ae) {
		t.Fatalf("expected AuthError without session, got %v", err)
	}
}

func TestNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c, err := client.New(url)
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	_, err = c.Accesses(context.Background())
	var ne *client.NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestPoller_DeliversSortedConversation(t *testing.T) {
	ts, _ := newAPI(t)
	ctx := context.Background()

	patient, pat := signup(t, ts.URL, "Ana Paciente", "ana@example.com", "PATIENT")
	doctor, doc := signup(t, ts.URL, "Gregory House", "house@example.com", "DOCTOR")
	if _, err := patient.GrantAccess(ctx, "house@example.com"); err != nil {
		t.Fatalf("GrantAccess: %v", err)
	}

	if _, err := patient.SendMessage(ctx, doc.UserID, "hola doctor"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	batches := make(chan []client.Message, 16)
	p := client.NewPoller(doctor, func(userID string, msgs []client.Message) {
		if userID != pat.UserID {
			return
		}
		select {
		case batches <- msgs:
		default:
		}
	}, client.WithPollInterval(10*time.Millisecond))

	p.Select(ctx, pat.UserID)
	defer p.Stop()

	first := waitBatch(t, batches, func(m []client.Message) bool { return len(m) == 1 })
	if first[0].Content != "hola doctor" {
		t.Fatalf("unexpected first batch: %+v", first)
	}

	if _, err := doctor.SendMessage(ctx, pat.UserID, "hola Ana"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	got := waitBatch(t, batches, func(m []client.Message) bool { return len(m) == 2 })
	for i := 1; i < len(got); i++ {
		if got[i].SentAt.Before(got[i-1].SentAt) {
			t.Fatalf("batch not sorted by SentAt: %+v", got)
		}
	}

	n, err := patient.UnreadCount(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 unread for patient, got %d %v", n, err)
	}

	p.Stop()
	p.Stop()
}

func waitBatch(t *testing.T, ch <-chan []client.Message, ok func([]client.Message) bool) []client.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case m := <-ch:
			if ok(m) {
				return m
			}
		case <-deadline:
			t.Fatalf("timed out waiting for poller batch")
			return nil
		}
	}
}

func TestPoller_ConcurrentSelectLeavesOneRun(t *testing.T) {
	var (
		mu   sync.Mutex
		hits = map[string]int{}
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, "[]")
	}))
	defer ts.Close()

	snapshot := func() map[string]int {
		mu.Lock()
		defer mu.Unlock()
		out := make(map[string]int, len(hits))
		for k, v := range hits {
			out[k] = v
		}
		return out
	}

	c, err := client.New(ts.URL, client.WithDebugUser("d1"))
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	p := client.NewPoller(c, nil, client.WithPollInterval(5*time.Millisecond))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p.Select(context.Background(), fmt.Sprintf("u%d", i))
		}(i)
	}
	wg.Wait()

	time.Sleep(30 * time.Millisecond)
	before := snapshot()
	time.Sleep(60 * time.Millisecond)
	after := snapshot()

	growing := 0
	for path, n := range after {
		if n > before[path] {
			growing++
		}
	}
	if growing != 1 {
		t.Fatalf("expected exactly one conversation still polled, got %d (%v -> %v)", growing, before, after)
	}

	p.Stop()
	stopped := snapshot()
	time.Sleep(30 * time.Millisecond)
	final := snapshot()
	for path, n := range final {
		if n != stopped[path] {
			t.Fatalf("poll for %s continued after Stop", path)
		}
	}
}
