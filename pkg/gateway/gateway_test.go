package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/witong42/OpenSpore/pkg/bus"
)

type echoBrain struct{}

func (echoBrain) Think(_ context.Context, prompt string) string {
	return "thought about: " + prompt
}

func TestWebSocketRoundTrip(t *testing.T) {
	msgBus := bus.NewMessageBus()
	g := New(msgBus, echoBrain{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go g.consumeInbound(ctx)
	go g.dispatchOutbound(ctx)

	srv := httptest.NewServer(http.HandlerFunc(g.handleWS(ctx)))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(wsFrame{Type: "chat", Content: "hello"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var reply wsFrame
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Type != "answer" || reply.Content != "thought about: hello" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestWebSocketMalformedFrame(t *testing.T) {
	msgBus := bus.NewMessageBus()
	g := New(msgBus, echoBrain{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(g.handleWS(ctx)))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var reply wsFrame
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Type != "error" {
		t.Fatalf("expected error frame, got %+v", reply)
	}
}

func TestDispatchOutbound_UnknownChannelDropped(t *testing.T) {
	msgBus := bus.NewMessageBus()
	g := New(msgBus, echoBrain{})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	msgBus.PublishOutbound(bus.OutboundMessage{Channel: "nonexistent", ChatID: "1", Content: "x"})
	// Must not panic or block; returns when ctx expires.
	g.dispatchOutbound(ctx)
}
