// OpenSpore - Autonomous personal AI agent
// License: MIT
//
// Copyright (c) 2026 OpenSpore contributors

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/witong42/OpenSpore/pkg/agent"
	"github.com/witong42/OpenSpore/pkg/bus"
	"github.com/witong42/OpenSpore/pkg/channels"
	"github.com/witong42/OpenSpore/pkg/logger"
)

// Thinker is the brain surface the gateway drives.
type Thinker interface {
	Think(ctx context.Context, prompt string) string
}

// wsFrame is the wire format on the WebSocket surface, both directions.
type wsFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Tool    string `json:"tool,omitempty"`
	Depth   int    `json:"depth,omitempty"`
	Success bool   `json:"success"`
}

// Gateway owns the message plumbing: inbound bus messages go to the
// brain, answers go back out through the matching channel adapter, and
// a WebSocket endpoint exposes the same loop to local clients.
type Gateway struct {
	bus      *bus.MessageBus
	brain    Thinker
	channels map[string]channels.Channel
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*wsClient
	nextID  int

	server *http.Server
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func New(msgBus *bus.MessageBus, brain Thinker) *Gateway {
	return &Gateway{
		bus:      msgBus,
		brain:    brain,
		channels: make(map[string]channels.Channel),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Local control surface only; the listener binds loopback.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[string]*wsClient),
	}
}

// RegisterChannel adds an adapter for outbound dispatch. Adapters are
// started by the caller.
func (g *Gateway) RegisterChannel(ch channels.Channel) {
	g.channels[ch.Name()] = ch
}

// ObserveEvents broadcasts brain progress events to every connected
// WebSocket client. The channel comes from Agent.SetObserver; sends on
// it are already non-blocking, so a slow browser only misses frames.
func (g *Gateway) ObserveEvents(ctx context.Context, events <-chan agent.AgentEvent) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				frame := wsFrame{
					Type:    "event:" + string(ev.Type),
					Content: ev.Content,
					Tool:    ev.Tool,
					Depth:   ev.Depth,
					Success: ev.Success,
				}
				g.mu.Lock()
				targets := make([]*wsClient, 0, len(g.clients))
				for _, client := range g.clients {
					targets = append(targets, client)
				}
				g.mu.Unlock()
				for _, client := range targets {
					client.writeJSON(frame)
				}
			}
		}
	}()
}

// Run blocks until ctx is cancelled, driving both bus directions.
func (g *Gateway) Run(ctx context.Context, host string, port int) error {
	go g.consumeInbound(ctx)
	go g.dispatchOutbound(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", g.handleWS(ctx))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	g.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoCF("gateway", "listening", map[string]interface{}{"addr": g.server.Addr})
		errCh <- g.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		g.server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// RunBusOnly pumps the message bus without opening the WebSocket
// listener, for deployments that disable the gateway surface but still
// run channel adapters.
func (g *Gateway) RunBusOnly(ctx context.Context) error {
	go g.consumeInbound(ctx)
	go g.dispatchOutbound(ctx)
	<-ctx.Done()
	return nil
}

// consumeInbound drains the inbound queue, thinking one message at a
// time per goroutine so a long tool loop on one chat does not stall the
// others.
func (g *Gateway) consumeInbound(ctx context.Context) {
	for {
		msg, ok := g.bus.ConsumeInbound(ctx)
		if !ok {
			return
		}
		go func(msg bus.InboundMessage) {
			logger.InfoCF("gateway", "processing message", map[string]interface{}{
				"channel": msg.Channel,
				"session": msg.SessionKey,
			})
			answer := g.brain.Think(ctx, msg.Content)
			g.bus.PublishOutbound(bus.OutboundMessage{
				Channel:  msg.Channel,
				ChatID:   msg.ChatID,
				Content:  answer,
				Metadata: msg.Metadata,
			})
		}(msg)
	}
}

func (g *Gateway) dispatchOutbound(ctx context.Context) {
	for {
		msg, ok := g.bus.ConsumeOutbound(ctx)
		if !ok {
			return
		}
		if msg.Channel == "ws" {
			g.sendToClient(msg.ChatID, msg.Content)
			continue
		}
		ch, ok := g.channels[msg.Channel]
		if !ok {
			logger.WarnCF("gateway", "no adapter for outbound channel", map[string]interface{}{"channel": msg.Channel})
			continue
		}
		if err := ch.Send(ctx, msg); err != nil {
			logger.ErrorCF("gateway", "outbound send failed", map[string]interface{}{
				"channel": msg.Channel,
				"error":   err.Error(),
			})
		}
	}
}

func (g *Gateway) handleWS(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := g.upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.ErrorCF("gateway", "websocket upgrade failed", map[string]interface{}{"error": err.Error()})
			return
		}

		g.mu.Lock()
		g.nextID++
		clientID := fmt.Sprintf("ws-%d", g.nextID)
		client := &wsClient{conn: conn}
		g.clients[clientID] = client
		g.mu.Unlock()

		logger.InfoCF("gateway", "websocket client connected", map[string]interface{}{"client": clientID})

		defer func() {
			g.mu.Lock()
			delete(g.clients, clientID)
			g.mu.Unlock()
			conn.Close()
		}()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame wsFrame
			if err := json.Unmarshal(data, &frame); err != nil || frame.Content == "" {
				client.writeJSON(wsFrame{Type: "error", Content: "expected {\"type\":\"chat\",\"content\":\"...\"}"})
				continue
			}
			g.bus.PublishInbound(bus.InboundMessage{
				Channel:    "ws",
				SenderID:   clientID,
				ChatID:     clientID,
				Content:    frame.Content,
				SessionKey: "ws:" + clientID,
			})
		}
	}
}

func (g *Gateway) sendToClient(clientID, content string) {
	g.mu.Lock()
	client, ok := g.clients[clientID]
	g.mu.Unlock()
	if !ok {
		logger.WarnCF("gateway", "websocket client gone, dropping answer", map[string]interface{}{"client": clientID})
		return
	}
	if err := client.writeJSON(wsFrame{Type: "answer", Content: content, Success: true}); err != nil {
		logger.ErrorCF("gateway", "websocket write failed", map[string]interface{}{"error": err.Error()})
	}
}
