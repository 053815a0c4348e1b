package model

import "time"

// Message is one chat line between two users.  A conversation is the
// unordered pair {SenderID, ReceiverID}.  Only IsRead ever changes after
// insert, and only from false to true.
type Message struct {
	ID         string    `json:"id"`
	SenderID   uint64    `json:"sender_id"`
	ReceiverID uint64    `json:"receiver_id"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// Involves reports whether m belongs to the conversation between a and b.
func (m Message) Involves(a, b uint64) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}
