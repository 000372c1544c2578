package memory

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"consent-records/internal/ports/blob"
)

func TestStore_PresignAndServe(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	s := New("secret", "").WithClock(func() time.Time { return now })
	ctx := context.Background()

	key := "patient-p1/record-r1/abc.pdf"
	if err := s.Put(ctx, key, strings.NewReader("%PDF-1.4"), 8, "application/pdf"); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	link, err := s.PresignGet(ctx, key, "report.pdf", 30*time.Minute)
	if err != nil {
		t.Fatalf("PresignGet error: %v", err)
	}
	if !strings.HasPrefix(link, DefaultPrefix+"patient-p1/record-r1/abc.pdf?token=") {
		t.Fatalf("unexpected link: %s", link)
	}

	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, link, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body, _ := io.ReadAll(rr.Body)
	if string(body) != "%PDF-1.4" {
		t.Fatalf("unexpected body %q", body)
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "report.pdf") {
		t.Fatalf("missing content disposition")
	}

	// Vencido
	now = now.Add(31 * time.Minute)
	rr = httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, link, nil))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 after expiry, got %d", rr.Code)
	}
}

func TestStore_RejectsTamperedKey(t *testing.T) {
	s := New("secret", "")
	ctx := context.Background()
	_ = s.Put(ctx, "patient-a/record-1/x.txt", strings.NewReader("a"), 1, "text/plain")
	_ = s.Put(ctx, "patient-b/record-2/y.txt", strings.NewReader("b"), 1, "text/plain")

	link, _ := s.PresignGet(ctx, "patient-a/record-1/x.txt", "x.txt", time.Minute)
	forged := strings.Replace(link, "patient-a/record-1/x.txt", "patient-b/record-2/y.txt", 1)

	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, forged, nil))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for forged key, got %d", rr.Code)
	}
}

func TestStore_MissingAndDelete(t *testing.T) {
	s := New("secret", "")
	ctx := context.Background()

	if _, err := s.PresignGet(ctx, "nope", "n", time.Minute); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_ = s.Put(ctx, "k", strings.NewReader("v"), 1, "")
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := s.PresignGet(ctx, "k", "n", time.Minute); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("deleted blob must be gone, got %v", err)
	}
	if err := s.Put(ctx, "k", strings.NewReader("abc"), 5, ""); err == nil {
		t.Fatalf("expected size mismatch error")
	}
}
