package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrNotFound = errors.New("blob not found")

// Store guarda adjuntos y emite URLs de descarga con vencimiento.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// PresignGet devuelve una URL válida por ttl; fileName va como nombre de descarga.
	PresignGet(ctx context.Context, key, fileName string, ttl time.Duration) (string, error)

	Delete(ctx context.Context, key string) error
}
