package messages

import "context"

type Repository interface {
	Create(ctx context.Context, m Message) error
	// ListConversation devuelve los mensajes entre a y b ordenados por SentAt y luego ID.
	ListConversation(ctx context.Context, a, b string) ([]Message, error)
	// MarkRead marca como leídos los mensajes de from hacia to.
	MarkRead(ctx context.Context, from, to string) (int, error)
	// LatestPerPeer devuelve el último mensaje con cada par, más nuevo primero.
	LatestPerPeer(ctx context.Context, userID string) ([]Message, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	CountUnreadFrom(ctx context.Context, from, to string) (int, error)
}
