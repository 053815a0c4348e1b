package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/docreplace-portal/internal/model"
)

// MessageRepo stores chat messages.  Ids are UUIDv7 so ordering by
// (created_at, id) keeps send order even within one clock tick.
type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

// Create inserts m as given.
func (r *MessageRepo) Create(ctx context.Context, m *model.Message) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO messages (id, sender_id, receiver_id, content, is_read, created_at) VALUES (?,?,?,?,?,?)",
		m.ID, m.SenderID, m.ReceiverID, m.Content, m.IsRead, m.CreatedAt)
	return err
}

// ListConversation returns both directions of the a<->b conversation in
// ascending creation order.
func (r *MessageRepo) ListConversation(ctx context.Context, a, b uint64) ([]model.Message, error) {
	const q = `SELECT id, sender_id, receiver_id, content, is_read, created_at FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, a, b, b, a)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Message, 0)
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkRead flags every unread message from sender to receiver as read and
// returns how many rows changed.  A second call changes nothing.
func (r *MessageRepo) MarkRead(ctx context.Context, receiver, sender uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE messages SET is_read = 1 WHERE receiver_id = ? AND sender_id = ? AND is_read = 0",
		receiver, sender)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UnreadSenders returns the sender_id of every unread message addressed to
// receiver, one entry per message.
func (r *MessageRepo) UnreadSenders(ctx context.Context, receiver uint64) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT sender_id FROM messages WHERE receiver_id = ? AND is_read = 0", receiver)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
