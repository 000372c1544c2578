package postgres

import (
	"context"
	"database/sql"

	"consent-records/internal/domain/messages"
)

type MessagesRepo struct {
	db *sql.DB
}

func NewMessagesRepo(db *sql.DB) *MessagesRepo {
	return &MessagesRepo{db: db}
}

const messageColumns = `id, sender_id, receiver_id, content, sent_at, is_read`

func (r *MessagesRepo) Create(ctx context.Context, m messages.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (`+messageColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, m.ID, m.SenderID, m.ReceiverID, m.Content, m.SentAt, m.Read)
	return err
}

func (r *MessagesRepo) ListConversation(ctx context.Context, a, b string) ([]messages.Message, error) {
	return r.query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY sent_at ASC, id ASC
	`, a, b)
}

func (r *MessagesRepo) MarkRead(ctx context.Context, from, to string) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET is_read = TRUE
		WHERE sender_id = $1 AND receiver_id = $2 AND NOT is_read
	`, from, to)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *MessagesRepo) LatestPerPeer(ctx context.Context, userID string) ([]messages.Message, error) {
	return r.query(ctx, `
		SELECT `+messageColumns+` FROM (
			SELECT DISTINCT ON (peer) peer, `+messageColumns+`
			FROM (
				SELECT CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS peer, *
				FROM messages
				WHERE sender_id = $1 OR receiver_id = $1
			) m
			ORDER BY peer, sent_at DESC, id DESC
		) latest
		ORDER BY sent_at DESC, id DESC
	`, userID)
}

func (r *MessagesRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND NOT is_read
	`, userID).Scan(&n)
	return n, err
}

func (r *MessagesRepo) CountUnreadFrom(ctx context.Context, from, to string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages WHERE sender_id = $1 AND receiver_id = $2 AND NOT is_read
	`, from, to).Scan(&n)
	return n, err
}

func (r *MessagesRepo) query(ctx context.Context, q string, args ...any) ([]messages.Message, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]messages.Message, 0)
	for rows.Next() {
		var m messages.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.SentAt, &m.Read); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
