package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"consent-records/internal/domain/messages"
)

type messageRepo struct {
	mu    sync.RWMutex
	items []messages.Message
}

func NewMessagesRepo() messages.Repository {
	return &messageRepo{}
}

func (r *messageRepo) Create(ctx context.Context, m messages.Message) error {
	if m.ID == "" {
		return errors.New("message id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, m)
	return nil
}

func (r *messageRepo) ListConversation(ctx context.Context, a, b string) ([]messages.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]messages.Message, 0)
	for _, m := range r.items {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	messages.SortBySentAt(out)
	return out, nil
}

func (r *messageRepo) MarkRead(ctx context.Context, from, to string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for i := range r.items {
		m := &r.items[i]
		if m.SenderID == from && m.ReceiverID == to && !m.Read {
			m.Read = true
			n++
		}
	}
	return n, nil
}

func (r *messageRepo) LatestPerPeer(ctx context.Context, userID string) ([]messages.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	latest := make(map[string]messages.Message)
	for _, m := range r.items {
		var peer string
		switch userID {
		case m.SenderID:
			peer = m.ReceiverID
		case m.ReceiverID:
			peer = m.SenderID
		default:
			continue
		}
		if cur, ok := latest[peer]; !ok || !m.SentAt.Before(cur.SentAt) {
			latest[peer] = m
		}
	}

	out := make([]messages.Message, 0, len(latest))
	for _, m := range latest {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].SentAt.After(out[j].SentAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *messageRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, m := range r.items {
		if m.ReceiverID == userID && !m.Read {
			n++
		}
	}
	return n, nil
}

func (r *messageRepo) CountUnreadFrom(ctx context.Context, from, to string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, m := range r.items {
		if m.SenderID == from && m.ReceiverID == to && !m.Read {
			n++
		}
	}
	return n, nil
}
