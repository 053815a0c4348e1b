package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/iliyamo/docreplace-portal/internal/apperr"
	"github.com/iliyamo/docreplace-portal/internal/model"
	"github.com/iliyamo/docreplace-portal/internal/realtime"
)

const (
	customerID uint64 = 10
	staffID    uint64 = 1
)

func newTestMessages() (*MessageService, *fakeMessages) {
	store := &fakeMessages{}
	svc := NewMessageService(store, realtime.NewMemoryBus(16), fakeStaff{id: staffID})
	svc.Now = clock()
	return svc, store
}

func contents(ms []model.Message) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Content
	}
	return out
}

func TestSendAndListInOrder(t *testing.T) {
	svc, _ := newTestMessages()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := svc.Send(ctx, customerID, staffID, fmt.Sprintf("m%d", i)); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Send(ctx, staffID, customerID, fmt.Sprintf("r%d", i)); err != nil {
			t.Fatal(err)
		}
	}
	// A message between other users must not leak in.
	if _, err := svc.Send(ctx, 99, staffID, "other"); err != nil {
		t.Fatal(err)
	}

	want := []string{"m0", "r0", "m1", "r1", "m2", "r2"}
	for _, side := range [][2]uint64{{staffID, customerID}, {customerID, staffID}} {
		conv, err := svc.ListConversation(ctx, side[0], side[1])
		if err != nil {
			t.Fatal(err)
		}
		if got := contents(conv); fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("ListConversation(%d, %d) = %v, want %v", side[0], side[1], got, want)
		}
		for i, m := range conv {
			if m.IsRead {
				t.Errorf("conv[%d] created read", i)
			}
		}
	}
}

func TestSameInstantOrderedByID(t *testing.T) {
	svc, store := newTestMessages()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return at }
	ctx := context.Background()

	want := []string{"a", "b", "c", "d"}
	for i, c := range want {
		from, to := customerID, staffID
		if i%2 == 1 {
			from, to = staffID, customerID
		}
		if _, err := svc.Send(ctx, from, to, c); err != nil {
			t.Fatal(err)
		}
	}
	// Storage order carries no meaning; only the ids can restore send order.
	for i, j := 0, len(store.rows)-1; i < j; i, j = i+1, j-1 {
		store.rows[i], store.rows[j] = store.rows[j], store.rows[i]
	}

	a, _ := svc.ListConversation(ctx, customerID, staffID)
	b, _ := svc.ListConversation(ctx, staffID, customerID)
	if fmt.Sprint(contents(a)) != fmt.Sprint(want) || fmt.Sprint(contents(b)) != fmt.Sprint(want) {
		t.Errorf("same-instant order = %v / %v, want %v", contents(a), contents(b), want)
	}
	for _, m := range a {
		if !m.CreatedAt.Equal(at) {
			t.Fatalf("created_at = %v", m.CreatedAt)
		}
	}
}

func TestSendRejectsBlank(t *testing.T) {
	svc, store := newTestMessages()
	for _, content := range []string{"", "   \n\t"} {
		if _, err := svc.Send(context.Background(), customerID, staffID, content); !apperr.IsValidation(err) {
			t.Errorf("Send(%q) = %v", content, err)
		}
	}
	if _, err := svc.Send(context.Background(), customerID, customerID, "hi"); !apperr.IsValidation(err) {
		t.Errorf("self message: %v", err)
	}
	if len(store.rows) != 0 {
		t.Errorf("rejected messages stored")
	}
}

func TestMarkReadIdempotentAndUnreadCounts(t *testing.T) {
	svc, _ := newTestMessages()
	ctx := context.Background()
	svc.Send(ctx, customerID, staffID, "a")
	svc.Send(ctx, customerID, staffID, "b")
	svc.Send(ctx, 11, staffID, "c")

	counts, err := svc.UnreadCounts(ctx, staffID)
	if err != nil {
		t.Fatal(err)
	}
	if counts[customerID] != 2 || counts[11] != 1 {
		t.Errorf("counts = %v", counts)
	}

	n, err := svc.MarkRead(ctx, staffID, customerID)
	if err != nil || n != 2 {
		t.Fatalf("MarkRead = %d, %v", n, err)
	}
	n, err = svc.MarkRead(ctx, staffID, customerID)
	if err != nil || n != 0 {
		t.Fatalf("second MarkRead = %d, %v", n, err)
	}

	counts, _ = svc.UnreadCounts(ctx, staffID)
	if _, ok := counts[customerID]; ok {
		t.Errorf("customer still unread: %v", counts)
	}
	if counts[11] != 1 {
		t.Errorf("other sender affected: %v", counts)
	}
}

func TestSubscribeInboundFiltersReceiver(t *testing.T) {
	svc, _ := newTestMessages()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan model.Message, 4)
	if err := svc.SubscribeInbound(ctx, staffID, func(m model.Message) { got <- m }); err != nil {
		t.Fatal(err)
	}
	svc.Send(ctx, staffID, customerID, "to customer")
	svc.Send(ctx, customerID, staffID, "to staff")

	select {
	case m := <-got:
		if m.Content != "to staff" {
			t.Errorf("received %q", m.Content)
		}
	case <-time.After(time.Second):
		t.Fatal("no inbound message")
	}
	select {
	case m := <-got:
		t.Errorf("unexpected extra message %q", m.Content)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOpenConversationMarksRead(t *testing.T) {
	svc, store := newTestMessages()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Send(ctx, customerID, staffID, "earlier")

	live := make(chan model.Message, 4)
	history, err := svc.OpenConversation(ctx, staffID, customerID, func(m model.Message) { live <- m })
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Content != "earlier" {
		t.Fatalf("history = %+v", history)
	}
	counts, _ := svc.UnreadCounts(ctx, staffID)
	if counts[customerID] != 0 {
		t.Errorf("history not marked read: %v", counts)
	}

	svc.Send(ctx, customerID, staffID, "live")
	select {
	case m := <-live:
		if m.Content != "live" {
			t.Errorf("live = %q", m.Content)
		}
	case <-time.After(time.Second):
		t.Fatal("no live message")
	}
	deadline := time.Now().Add(time.Second)
	for {
		n, _ := store.UnreadSenders(ctx, staffID)
		if len(n) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("live message not auto-marked read")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStaffContact(t *testing.T) {
	svc, _ := newTestMessages()
	id, err := svc.StaffContact(context.Background())
	if err != nil || id != staffID {
		t.Fatalf("StaffContact = %d, %v", id, err)
	}
	svc.Staff = fakeStaff{}
	if _, err := svc.StaffContact(context.Background()); !apperr.IsNotFound(err) {
		t.Errorf("no staff: %v", err)
	}
}
