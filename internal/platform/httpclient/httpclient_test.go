package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestDo_JSONRoundTripAndHeaders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer t" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Content-Type") != "application/json" {
			http.Error(w, "bad content type", http.StatusBadRequest)
			return
		}
		b, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"echo":` + string(b) + `}`))
	}))
	defer ts.Close()

	c, err := NewWithBaseURL(ts.URL+"/", time.Second)
	if err != nil {
		t.Fatalf("NewWithBaseURL: %v", err)
	}

	var out struct {
		Echo struct {
			Name string `json:"name"`
		} `json:"echo"`
	}
	err = c.DoJSON(context.Background(), http.MethodPost, "api/x", map[string]string{"Authorization": "Bearer t"}, map[string]string{"name": "ana"}, &out)
	if err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if out.Echo.Name != "ana" {
		t.Fatalf("unexpected echo: %+v", out)
	}
}

func TestDo_HTTPErrorCarriesBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "access required", http.StatusForbidden)
	}))
	defer ts.Close()

	c, _ := NewWithBaseURL(ts.URL, time.Second)
	err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x", Body: strings.NewReader("raw"), ContentType: "text/plain"}, nil)

	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusForbidden || he.Body != "access required" {
		t.Fatalf("expected HTTPError 403, got %v", err)
	}
}

func TestDo_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c, _ := NewWithBaseURL(url, time.Second)
	err := c.DoJSON(context.Background(), http.MethodGet, "/x", nil, nil, nil)

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestResolveURL(t *testing.T) {
	c := New(0)
	if _, err := c.resolveURL("/x"); err == nil {
		t.Fatalf("expected error for relative path without BaseURL")
	}
	if u, err := c.resolveURL("https://example.com/a"); err != nil || u != "https://example.com/a" {
		t.Fatalf("absolute url must pass through, got %q %v", u, err)
	}
	if _, err := NewWithBaseURL("::bad", 0); err == nil {
		t.Fatalf("expected invalid base url error")
	}
}
