package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/docreplace-portal/internal/apperr"
	"github.com/iliyamo/docreplace-portal/internal/model"
	"github.com/iliyamo/docreplace-portal/internal/realtime"
	"github.com/iliyamo/docreplace-portal/internal/repository"
)

// MessageStore is implemented by repository.MessageRepo.
type MessageStore interface {
	Create(ctx context.Context, m *model.Message) error
	ListConversation(ctx context.Context, a, b uint64) ([]model.Message, error)
	MarkRead(ctx context.Context, receiver, sender uint64) (int64, error)
	UnreadSenders(ctx context.Context, receiver uint64) ([]uint64, error)
}

// StaffLookup finds the staff member customers chat with.
type StaffLookup interface {
	FirstWithRole(ctx context.Context, role model.Role) (uint64, error)
}

// maxMessageLen caps a single chat message.
const maxMessageLen = 4000

// MessageService is the chat channel between customers and staff.
type MessageService struct {
	Store MessageStore
	Bus   realtime.Bus
	Staff StaffLookup

	Now   func() time.Time
	NewID func() string
}

func NewMessageService(store MessageStore, bus realtime.Bus, staff StaffLookup) *MessageService {
	return &MessageService{
		Store: store,
		Bus:   bus,
		Staff: staff,
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: newMessageID,
	}
}

// newMessageID returns a time-ordered UUIDv7 so ids sort in send order.
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// ListConversation returns the a<->b conversation, oldest first.
func (s *MessageService) ListConversation(ctx context.Context, a, b uint64) ([]model.Message, error) {
	return s.Store.ListConversation(ctx, a, b)
}

// Send stores an unread message from -> to and pushes it to live
// listeners.
func (s *MessageService) Send(ctx context.Context, from, to uint64, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	switch {
	case content == "":
		return nil, apperr.Validation("content", "is required")
	case len(content) > maxMessageLen:
		return nil, apperr.Validation("content", "is too long")
	case to == 0:
		return nil, apperr.Validation("receiver_id", "is required")
	case from == to:
		return nil, apperr.Validation("receiver_id", "cannot message yourself")
	}
	m := &model.Message{
		ID:         s.NewID(),
		SenderID:   from,
		ReceiverID: to,
		Content:    content,
		CreatedAt:  s.Now(),
	}
	if err := s.Store.Create(ctx, m); err != nil {
		return nil, err
	}
	if s.Bus != nil {
		if err := s.Bus.Publish(ctx, realtime.TopicMessages, m); err != nil {
			log.Printf("messages: realtime publish failed for %s: %v", m.ID, err)
		}
	}
	return m, nil
}

// MarkRead flags every unread message sender sent to receiver as read.
// It is idempotent and returns how many messages changed.
func (s *MessageService) MarkRead(ctx context.Context, receiver, sender uint64) (int64, error) {
	return s.Store.MarkRead(ctx, receiver, sender)
}

// UnreadCounts groups receiver's unread messages by sender.  It is
// recomputed from a fresh scan on every call.
func (s *MessageService) UnreadCounts(ctx context.Context, receiver uint64) (map[uint64]int, error) {
	senders, err := s.Store.UnreadSenders(ctx, receiver)
	if err != nil {
		return nil, err
	}
	counts := make(map[uint64]int)
	for _, id := range senders {
		counts[id]++
	}
	return counts, nil
}

// SubscribeInbound calls onMessage, in order and on a single goroutine, for
// every new message addressed to receiver until ctx is done.  Deciding
// whether to mark the message read is left to the caller.
func (s *MessageService) SubscribeInbound(ctx context.Context, receiver uint64, onMessage func(model.Message)) error {
	if s.Bus == nil {
		return errors.New("messages: realtime bus not configured")
	}
	events, err := s.Bus.Subscribe(ctx, realtime.TopicMessages)
	if err != nil {
		return err
	}
	go func() {
		for ev := range events {
			var m model.Message
			if err := ev.Decode(&m); err != nil {
				log.Printf("messages: bad realtime payload: %v", err)
				continue
			}
			if m.ReceiverID == receiver {
				onMessage(m)
			}
		}
	}()
	return nil
}

// OpenConversation loads the me<->peer history, marks it read and keeps
// following it: messages from peer are passed to onMessage and marked read
// as they arrive.  Marking read is best-effort and only logged on failure.
// The live part stops when ctx is done.
func (s *MessageService) OpenConversation(ctx context.Context, me, peer uint64, onMessage func(model.Message)) ([]model.Message, error) {
	// Subscribe before reading history so nothing sent in between is lost;
	// the caller may see such a message twice and can dedupe by id.
	err := s.SubscribeInbound(ctx, me, func(m model.Message) {
		if m.SenderID != peer {
			return
		}
		onMessage(m)
		if _, err := s.Store.MarkRead(ctx, me, peer); err != nil && ctx.Err() == nil {
			log.Printf("messages: auto mark-read %d<-%d failed: %v", me, peer, err)
		}
	})
	if err != nil {
		return nil, err
	}
	history, err := s.Store.ListConversation(ctx, me, peer)
	if err != nil {
		return nil, err
	}
	if _, err := s.Store.MarkRead(ctx, me, peer); err != nil {
		log.Printf("messages: mark-read %d<-%d failed: %v", me, peer, err)
	}
	return history, nil
}

// StaffContact returns the user id customers should chat with.
func (s *MessageService) StaffContact(ctx context.Context) (uint64, error) {
	id, err := s.Staff.FirstWithRole(ctx, model.RoleAdmin)
	if errors.Is(err, repository.ErrUserNotFound) {
		return 0, apperr.NotFound("support contact")
	}
	return id, err
}
