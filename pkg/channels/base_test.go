package channels

import (
	"context"
	"testing"
	"time"

	"github.com/witong42/OpenSpore/pkg/bus"
)

func TestIsAllowed(t *testing.T) {
	b := bus.NewMessageBus()

	open := NewBaseChannel("test", b, nil)
	if !open.IsAllowed("anyone") {
		t.Fatal("empty allow list admits everyone")
	}

	restricted := NewBaseChannel("test", b, []string{"123", "456"})
	if !restricted.IsAllowed("123") {
		t.Fatal("listed sender must be allowed")
	}
	if restricted.IsAllowed("999") {
		t.Fatal("unlisted sender must be rejected")
	}
}

func TestHandleMessage_PublishesWithSessionKey(t *testing.T) {
	b := bus.NewMessageBus()
	ch := NewBaseChannel("telegram", b, nil)

	ch.HandleMessage("42", "100", "hello", map[string]string{"k": "v"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, ok := b.ConsumeInbound(ctx)
	if !ok {
		t.Fatal("expected a published message")
	}
	if msg.SessionKey != "telegram:100" {
		t.Fatalf("session key = %q", msg.SessionKey)
	}
	if msg.SenderID != "42" || msg.Content != "hello" || msg.Metadata["k"] != "v" {
		t.Fatalf("got %+v", msg)
	}
}

func TestHandleMessage_BlockedSenderDropped(t *testing.T) {
	b := bus.NewMessageBus()
	ch := NewBaseChannel("telegram", b, []string{"allowed"})

	ch.HandleMessage("blocked", "100", "hello", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, ok := b.ConsumeInbound(ctx); ok {
		t.Fatal("blocked sender must not reach the bus")
	}
}

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("short", 100); len(got) != 1 || got[0] != "short" {
		t.Fatalf("got %v", got)
	}

	long := ""
	for i := 0; i < 50; i++ {
		long += "0123456789\n"
	}
	chunks := splitMessage(long, 100)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	var total int
	for _, c := range chunks {
		if len(c) > 100 {
			t.Fatalf("chunk over limit: %d", len(c))
		}
		total += len(c)
	}
	if total != len(long) {
		t.Fatalf("content lost: %d != %d", total, len(long))
	}
}
