package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"consent-records/internal/router"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newServer(t *testing.T) (*httptest.Server, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	ts := httptest.NewServer(router.NewRouter(router.Options{
		Clock: clock.Now,
	}))
	t.Cleanup(ts.Close)
	return ts, clock
}

func TestHTTP_EndToEnd_GrantRecordRevoke(t *testing.T) {
	ts, _ := newServer(t)

	patientID := registerUser(t, ts.URL, "Ana Paciente", "ana@example.com", "PATIENT")
	doctorID := registerUser(t, ts.URL, "Gregory House", "house@example.com", "DOCTOR")

	// 1) Médico sin acceso: 403 "access required", nunca lista vacía
	{
		st, body := doReq(t, ts.URL, "GET", "/api/records/"+patientID, doctorID, nil)
		if st != http.StatusForbidden || !strings.Contains(string(body), "access required") {
			t.Fatalf("expected 403 access required before grant, got %d body=%s", st, body)
		}
	}

	// 2) Paciente otorga acceso
	grantID := grantAccess(t, ts.URL, patientID, "HOUSE@example.com")

	// 3) Médico agrega un registro
	var created struct {
		RecordID string `json:"recordId"`
	}
	{
		st, body := doReq(t, ts.URL, "POST", "/api/records/"+patientID, doctorID, map[string]any{
			"type":    "VITALS",
			"title":   "Control",
			"content": "TA 120/80",
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 creating record, got %d body=%s", st, body)
		}
		_ = json.Unmarshal(body, &created)
		if created.RecordID == "" {
			t.Fatalf("missing recordId in %s", body)
		}
	}

	// 4) Médico ve la lista
	{
		st, body := doReq(t, ts.URL, "GET", "/api/records/"+patientID+"?page=0&size=5", doctorID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 doctor list, got %d body=%s", st, body)
		}
	}

	// 5) Paciente revoca
	{
		st, body := doReq(t, ts.URL, "DELETE", "/api/records/access/"+grantID, patientID, nil)
		if st != http.StatusOK && st != http.StatusNoContent {
			t.Fatalf("expected revoke ok, got %d body=%s", st, body)
		}
		st, _ = doReq(t, ts.URL, "DELETE", "/api/records/access/"+grantID, patientID, nil)
		if st != http.StatusConflict {
			t.Fatalf("expected 409 revoking twice, got %d", st)
		}
	}

	// 6) Médico pierde acceso en el siguiente request
	{
		st, _ := doReq(t, ts.URL, "GET", "/api/records/"+patientID, doctorID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 after revoke, got %d", st)
		}
		st, _ = doReq(t, ts.URL, "POST", "/api/records/"+patientID, doctorID, map[string]any{"title": "x", "content": "y"})
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 adding after revoke, got %d", st)
		}
	}

	// 7) El paciente siempre ve lo suyo
	{
		st, body := doReq(t, ts.URL, "GET", "/api/records/me?type=VITALS", patientID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 own records, got %d body=%s", st, body)
		}
		var page struct {
			Content []struct {
				ID   string `json:"id"`
				Type string `json:"type"`
			} `json:"content"`
			TotalElements int `json:"totalElements"`
		}
		_ = json.Unmarshal(body, &page)
		if page.TotalElements != 1 || page.Content[0].ID != created.RecordID || page.Content[0].Type != "VITALS" {
			t.Fatalf("unexpected own records: %s", body)
		}
	}

	// 8) Auditoría del paciente
	{
		st, body := doReq(t, ts.URL, "GET", "/api/audit-logs", patientID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 audit logs, got %d body=%s", st, body)
		}
		for _, action := range []string{"ACCESS_GRANTED", "RECORD_ADDED", "RECORD_VIEWED", "ACCESS_REVOKED"} {
			if !strings.Contains(string(body), action) {
				t.Fatalf("expected %s in audit log: %s", action, body)
			}
		}
	}
}

func TestHTTP_ExpiredGrantBlocksDoctor(t *testing.T) {
	ts, clock := newServer(t)

	patientID := registerUser(t, ts.URL, "Ana Paciente", "ana@example.com", "PATIENT")
	doctorID := registerUser(t, ts.URL, "Gregory House", "house@example.com", "DOCTOR")
	grantAccess(t, ts.URL, patientID, "house@example.com")

	if st, _ := doReq(t, ts.URL, "GET", "/api/records/"+patientID, doctorID, nil); st != http.StatusOK {
		t.Fatalf("expected 200 while active, got %d", st)
	}

	clock.Advance(30*24*time.Hour + time.Second)

	st, body := doReq(t, ts.URL, "GET", "/api/records/"+patientID, doctorID, nil)
	if st != http.StatusForbidden || !strings.Contains(string(body), "access required") {
		t.Fatalf("expected 403 access required after expiry, got %d body=%s", st, body)
	}

	// El paciente no queda bloqueado por sus propios grants vencidos.
	if st, _ := doReq(t, ts.URL, "GET", "/api/records/me", patientID, nil); st != http.StatusOK {
		t.Fatalf("expected 200 for patient own records, got %d", st)
	}

	// Mensajería: se puede leer el historial, no enviar.
	if st, _ := doReq(t, ts.URL, "GET", "/api/messages/conversation/"+patientID, doctorID, nil); st != http.StatusOK {
		t.Fatalf("expected historical conversation readable, got %d", st)
	}
	if st, _ := doReq(t, ts.URL, "POST", "/api/messages", doctorID, map[string]any{"receiverId": patientID, "content": "hola"}); st != http.StatusForbidden {
		t.Fatalf("expected 403 sending after expiry, got %d", st)
	}
}

func TestHTTP_ValidationAndAuth(t *testing.T) {
	ts, _ := newServer(t)

	patientID := registerUser(t, ts.URL, "Ana Paciente", "ana@example.com", "PATIENT")

	cases := []struct {
		name   string
		method string
		path   string
		user   string
		body   any
		want   int
	}{
		{"no auth", "GET", "/api/records/me", "", nil, http.StatusUnauthorized},
		{"bad email", "POST", "/api/records/access", patientID, map[string]any{"doctorEmail": "not-an-email"}, http.StatusBadRequest},
		{"unknown doctor", "POST", "/api/records/access", patientID, map[string]any{"doctorEmail": "who@example.com"}, http.StatusNotFound},
		{"bad page", "GET", "/api/records/me?page=-1", patientID, nil, http.StatusBadRequest},
		{"bad type", "GET", "/api/records/me?type=XRAY", patientID, nil, http.StatusBadRequest},
		{"duplicate email", "POST", "/api/users", "", map[string]any{"name": "Ana Dos", "email": "ana@example.com", "password": "abc123", "role": "PATIENT"}, http.StatusConflict},
		{"weak password", "POST", "/api/users", "", map[string]any{"name": "Beto", "email": "beto@example.com", "password": "abcdef", "role": "PATIENT"}, http.StatusBadRequest},
		{"login without issuer", "POST", "/api/users/login", "", map[string]any{"email": "ana@example.com", "password": "abc123"}, http.StatusServiceUnavailable},
		{"deleted user records", "GET", "/api/records/me", "ghost-user", nil, http.StatusUnauthorized},
		{"deleted user patients", "GET", "/api/records/patients", "ghost-user", nil, http.StatusUnauthorized},
		{"deleted user grant", "POST", "/api/records/access", "ghost-user", map[string]any{"doctorEmail": "who@example.com"}, http.StatusUnauthorized},
		{"deleted user unread", "GET", "/api/messages/unread-count", "ghost-user", nil, http.StatusUnauthorized},
		{"deleted user audit", "GET", "/api/audit-logs", "ghost-user", nil, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, body := doReq(t, ts.URL, tc.method, tc.path, tc.user, tc.body)
			if st != tc.want {
				t.Fatalf("expected %d, got %d body=%s", tc.want, st, body)
			}
		})
	}
}

func TestHTTP_HealthAndSwagger(t *testing.T) {
	ts, _ := newServer(t)

	if st, body := doReq(t, ts.URL, "GET", "/health", "", nil); st != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected health: %d %s", st, body)
	}
	if st, _ := doReq(t, ts.URL, "GET", "/swagger/doc.json", "", nil); st != http.StatusOK {
		t.Fatalf("expected swagger doc, got %d", st)
	}
}

// -------------------------
// helpers
// -------------------------

func registerUser(t *testing.T, baseURL, name, email, role string) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/api/users", "", map[string]any{
		"name":     name,
		"email":    email,
		"password": "abc123",
		"role":     role,
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 register, got %d body=%s", st, body)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
		t.Fatalf("invalid register response: %s", body)
	}
	return out.ID
}

func grantAccess(t *testing.T, baseURL, patientID, doctorEmail string) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/api/records/access", patientID, map[string]any{
		"doctorEmail": doctorEmail,
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 grant, got %d body=%s", st, body)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
		t.Fatalf("invalid grant response: %s", body)
	}
	return out.ID
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
