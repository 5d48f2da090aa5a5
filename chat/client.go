package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	requestTimeout   = 60 * time.Second
	handshakeTimeout = 10 * time.Second
)

// Handler receives inbound chat lines. It is called from the read loop's
// goroutine, so long work should move to its own goroutine.
type Handler func(Message)

// Client is the websocket connection to the chat network. One Client backs
// one session: dial, authenticate, join channels, then exchange frames until
// teardown.
type Client struct {
	url       string
	token     string
	conn      *websocket.Conn
	connected bool
	mu        sync.Mutex
	nextID    atomic.Int64

	pending   map[string]chan json.RawMessage
	pendingMu sync.Mutex

	events chan wireMessage
	done   chan struct{}

	// OnMessage, when set before Connect, receives chat.message and
	// chat.whisper events.
	OnMessage Handler
}

func NewClient(url, token string) *Client {
	return &Client{
		url:     url,
		token:   token,
		pending: make(map[string]chan json.RawMessage),
		events:  make(chan wireMessage, 100),
		done:    make(chan struct{}),
	}
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) Connect() error {
	url := c.url
	for _, prefix := range []string{"wss://", "ws://", "https://", "http://"} {
		url = strings.TrimPrefix(url, prefix)
	}
	url = strings.TrimSuffix(url, "/")
	wsURL := "wss://" + url

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop()

	if err := c.authenticate(); err != nil {
		conn.Close()
		return fmt.Errorf("auth: %w", err)
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	slog.Info("chat: connected", "url", wsURL)
	return nil
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) readLoop() {
	defer func() {
		select {
		case <-c.done:
		default:
			close(c.done)
		}
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			slog.Debug("chat: read loop ended", "err", err)
			return
		}

		var msg wireMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		// Response to a pending request?
		if msg.Type == "res" && msg.ID != "" {
			c.pendingMu.Lock()
			ch, ok := c.pending[msg.ID]
			if ok {
				delete(c.pending, msg.ID)
			}
			c.pendingMu.Unlock()
			if ok {
				ch <- raw
				close(ch)
				continue
			}
		}

		if msg.Type == "event" {
			c.handleEvent(msg)
		}
	}
}

func (c *Client) handleEvent(msg wireMessage) {
	switch msg.Event {
	case "chat.message", "chat.whisper":
		if c.OnMessage == nil {
			return
		}
		var m Message
		if err := json.Unmarshal(msg.Payload, &m); err != nil {
			slog.Warn("chat: bad message payload", "err", err)
			return
		}
		m.Whisper = msg.Event == "chat.whisper"
		c.OnMessage(m)
	default:
		// Handshake and housekeeping events go to the events channel.
		select {
		case c.events <- msg:
		default:
		}
	}
}

func (c *Client) request(ctx context.Context, method string, params interface{}) (wireMessage, error) {
	id := fmt.Sprintf("cb-%d", c.nextID.Add(1))

	ch := make(chan json.RawMessage, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	req := wireMessage{
		Type:   "req",
		ID:     id,
		Method: method,
		Params: params,
	}
	data, _ := json.Marshal(req)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return wireMessage{}, fmt.Errorf("not connected")
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return wireMessage{}, err
	}

	select {
	case raw := <-ch:
		var resp wireMessage
		json.Unmarshal(raw, &resp)
		if resp.Error != nil {
			return resp, fmt.Errorf("%s: %s: %s", method, resp.Error.Code, resp.Error.Message)
		}
		if !resp.OK {
			return resp, fmt.Errorf("%s rejected", method)
		}
		return resp, nil
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return wireMessage{}, ctx.Err()
	case <-time.After(requestTimeout):
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return wireMessage{}, fmt.Errorf("timeout waiting for %s response", method)
	case <-c.done:
		return wireMessage{}, fmt.Errorf("connection closed")
	}
}

func (c *Client) authenticate() error {
	// Wait for the connect.challenge event, then answer it with our token.
	var nonce string
	timeout := time.After(handshakeTimeout)
	for nonce == "" {
		select {
		case evt := <-c.events:
			if evt.Event == "connect.challenge" {
				var payload map[string]string
				json.Unmarshal(evt.Payload, &payload)
				nonce = payload["nonce"]
			}
		case <-timeout:
			return fmt.Errorf("timeout waiting for challenge")
		case <-c.done:
			return fmt.Errorf("connection closed before challenge")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), handshakeTimeout)
	defer cancel()

	_, err := c.request(ctx, "connect", map[string]interface{}{
		"auth":  map[string]string{"token": c.token},
		"nonce": nonce,
		"client": map[string]string{
			"id":      "chatbridge",
			"version": "1.0.0",
		},
	})
	return err
}

// JoinChannel subscribes the session to a channel's message stream.
func (c *Client) JoinChannel(ctx context.Context, channel string) error {
	_, err := c.request(ctx, "chat.join", map[string]string{"channel": channel})
	if err != nil {
		return fmt.Errorf("join %s: %w", channel, err)
	}
	slog.Info("chat: joined", "channel", channel)
	return nil
}

// Send delivers one line to a channel. The caller guarantees text is within
// the network's length ceiling.
func (c *Client) Send(ctx context.Context, channel, text string) error {
	_, err := c.request(ctx, "chat.say", map[string]string{
		"channel": channel,
		"text":    text,
	})
	return err
}

// SendDirect delivers one whisper to a user. Same length contract as Send.
func (c *Client) SendDirect(ctx context.Context, userID, text string) error {
	_, err := c.request(ctx, "chat.whisper", map[string]string{
		"userId": userID,
		"text":   text,
	})
	return err
}
