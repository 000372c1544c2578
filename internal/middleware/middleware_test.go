package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"consent-records/internal/platform/logger"
	"consent-records/internal/ports/auth"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeVerifier struct{}

func (fakeVerifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if token == "good" {
		return auth.Claims{UserID: "u-jwt", Role: "DOCTOR"}, nil
	}
	return auth.Claims{}, errors.New("bad token")
}

func claimsProbe(got *auth.Claims, ok *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, *ok = GetClaims(r.Context())
	})
}

func TestAuthContext(t *testing.T) {
	cases := []struct {
		name     string
		verifier auth.AuthVerifier
		opts     []AuthOption
		header   map[string]string
		wantOK   bool
		wantUser string
	}{
		{"dev debug header", nil, nil, map[string]string{HeaderDebugUserID: "u1", HeaderDebugRole: "PATIENT"}, true, "u1"},
		{"dev no header", nil, nil, nil, false, ""},
		{"bearer ok", fakeVerifier{}, nil, map[string]string{"Authorization": "Bearer good"}, true, "u-jwt"},
		{"bearer bad", fakeVerifier{}, nil, map[string]string{"Authorization": "Bearer nope"}, false, ""},
		{"debug ignored with verifier", fakeVerifier{}, nil, map[string]string{HeaderDebugUserID: "u1"}, false, ""},
		{"debug allowed with verifier", fakeVerifier{}, []AuthOption{AllowDebugHeaders()}, map[string]string{HeaderDebugUserID: "u1"}, true, "u1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got auth.Claims
			var ok bool
			h := AuthContext(tc.verifier, tc.opts...)(claimsProbe(&got, &ok))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if ok != tc.wantOK || got.UserID != tc.wantUser {
				t.Fatalf("got ok=%v user=%q, want ok=%v user=%q", ok, got.UserID, tc.wantOK, tc.wantUser)
			}
		})
	}
}

func TestRecoverAndRequestLog(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := logger.FromZap(zap.New(core))

	h := RequestLog(log)(Recover(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/records/me", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Fatalf("expected panic to be logged")
	}
	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 || entries[0].ContextMap()["status"] != int64(500) {
		t.Fatalf("expected one request line with status 500, got %+v", entries)
	}
}
