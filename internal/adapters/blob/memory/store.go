// Package memory guarda adjuntos en memoria y los sirve por URL firmada.
// Pensado para dev y tests; en producción se usa el adapter minio.
package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"consent-records/internal/ports/blob"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultPrefix = "/api/files/blob/"

type object struct {
	data        []byte
	contentType string
}

type Store struct {
	mu      sync.RWMutex
	objects map[string]object

	secret []byte
	prefix string
	now    func() time.Time
}

// downloadClaims firma key + nombre de descarga con vencimiento.
type downloadClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

func New(signingKey, prefix string) *Store {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{
		objects: make(map[string]object),
		secret:  []byte(signingKey),
		prefix:  prefix,
		now:     time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("blob key required")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read blob: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("blob size mismatch: got %d want %d", len(data), size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{data: data, contentType: contentType}
	return nil
}

func (s *Store) PresignGet(ctx context.Context, key, fileName string, ttl time.Duration) (string, error) {
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", blob.ErrNotFound
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, downloadClaims{
		Name: fileName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   key,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign download url: %w", err)
	}

	return s.prefix + escapeKey(key) + "?token=" + url.QueryEscape(signed), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// ServeHTTP atiende GET <prefix><key>?token=... validando firma y vencimiento.
func (s *Store) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(strings.TrimPrefix(r.URL.EscapedPath(), s.prefix))
	if err != nil || key == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	claims := &downloadClaims{}
	_, err = jwt.ParseWithClaims(r.URL.Query().Get("token"), claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || claims.Subject != key {
		http.Error(w, "invalid or expired link", http.StatusForbidden)
		return
	}

	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	ct := obj.contentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	if claims.Name != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", claims.Name))
	}
	http.ServeContent(w, r, claims.Name, time.Time{}, bytes.NewReader(obj.data))
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
