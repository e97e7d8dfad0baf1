package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/markopsai/chapii-demo/internal/session"
)

// Client maintains the realtime socket to the vendor and translates wire
// messages into session events. It implements session.EventSource; the
// embedded emitter provides On/Off.
type Client struct {
	*session.Emitter

	token string
	wsURL string

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	stopCh    chan struct{}
}

// wireMessage is the JSON envelope of the vendor realtime stream. Only the
// fields for the received type are populated.
type wireMessage struct {
	Type           string         `json:"type"`
	Status         string         `json:"status,omitempty"`
	Role           string         `json:"role,omitempty"`
	TranscriptType string         `json:"transcriptType,omitempty"`
	Transcript     string         `json:"transcript,omitempty"`
	Volume         float64        `json:"volume,omitempty"`
	Call           map[string]any `json:"call,omitempty"`
	Result         map[string]any `json:"result,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// NewClient derives the websocket endpoint from the REST base URL.
func NewClient(apiURL, token string) *Client {
	return &Client{
		Emitter: session.NewEmitter(),
		token:   token,
		wsURL:   wsEndpoint(apiURL),
	}
}

func wsEndpoint(apiURL string) string {
	u := apiURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return strings.TrimSuffix(u, "/") + "/ws"
}

// Start dials the realtime endpoint and requests a session with the given
// assistant. The context bounds the handshake only; the connection itself
// lives until the call ends or Close is called.
func (c *Client) Start(ctx context.Context, assistantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return fmt.Errorf("realtime: session already active")
	}
	if c.token == "" {
		return fmt.Errorf("realtime: web token is empty")
	}

	headers := http.Header{"Authorization": {"Bearer " + c.token}}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	log.Printf("realtime: connecting to %s", c.wsURL)
	conn, resp, err := dialer.DialContext(ctx, c.wsURL, headers)
	if err != nil {
		if resp != nil {
			log.Printf("realtime: connection failed with status: %d", resp.StatusCode)
		}
		return fmt.Errorf("realtime: connect: %w", err)
	}

	start := map[string]string{"type": "start", "assistantId": assistantID}
	if err := conn.WriteJSON(start); err != nil {
		_ = conn.Close()
		return fmt.Errorf("realtime: send start: %w", err)
	}

	c.conn = conn
	c.connected = true
	c.stopCh = make(chan struct{})
	go c.readLoop(conn, c.stopCh)

	log.Printf("realtime: session requested for assistant %s", assistantID)
	return nil
}

// Stop asks the vendor to terminate the session. The stream stays open until
// the ended status arrives, so call-end is always observed as an event.
func (c *Client) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	if err := c.conn.WriteJSON(map[string]string{"type": "stop"}); err != nil {
		return fmt.Errorf("realtime: send stop: %w", err)
	}
	return nil
}

// Close tears the connection down without waiting for the vendor.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	close(c.stopCh)
	err := c.conn.Close()
	c.conn = nil
	c.connected = false
	log.Println("realtime: connection closed")
	return err
}

// readLoop pumps wire messages into the emitter until the connection drops
// or Close is called.
func (c *Client) readLoop(conn *websocket.Conn, stopCh chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("realtime: recovered from panic in readLoop: %v", r)
		}
	}()
	for {
		select {
		case <-stopCh:
			return
		default:
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.disconnect(conn)
			select {
			case <-stopCh:
				return
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Println("realtime: stream closed by vendor")
				return
			}
			log.Printf("realtime: read error: %v", err)
			c.Emit(session.Event{Type: session.EventError, Err: err})
			return
		}
		c.processMessage(raw)
	}
}

func (c *Client) disconnect(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		_ = c.conn.Close()
		c.conn = nil
		c.connected = false
	}
}

// processMessage maps one wire message onto the event stream.
func (c *Client) processMessage(raw []byte) {
	var msg wireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("realtime: unmarshal message: %v", err)
		return
	}
	switch msg.Type {
	case "status-update":
		switch msg.Status {
		case "in-progress":
			c.Emit(session.Event{Type: session.EventCallStart, Call: callPayload(msg.Call)})
		case "ended":
			c.Emit(session.Event{Type: session.EventCallEnd, Call: callPayload(msg.Call)})
		default:
			log.Printf("realtime: status-update %q ignored", msg.Status)
		}
	case "speech-update":
		switch msg.Status {
		case "started":
			c.Emit(session.Event{Type: session.EventSpeechStart})
		case "stopped":
			c.Emit(session.Event{Type: session.EventSpeechEnd})
		}
	case "volume-level":
		c.Emit(session.Event{Type: session.EventVolumeLevel, Volume: msg.Volume})
	case "transcript":
		c.Emit(session.Event{Type: session.EventMessage, Message: &session.Message{
			ID:             uuid.NewString(),
			Type:           session.MessageTypeTranscript,
			Role:           msg.Role,
			TranscriptType: msg.TranscriptType,
			Transcript:     msg.Transcript,
		}})
	case "function-call-result":
		c.Emit(session.Event{Type: session.EventMessage, Message: &session.Message{
			ID:     uuid.NewString(),
			Type:   session.MessageTypeFunctionCallResult,
			Result: msg.Result,
		}})
	case "error":
		c.Emit(session.Event{Type: session.EventError, Err: errors.New(msg.Error)})
	default:
		log.Printf("realtime: unknown message type: %s", msg.Type)
	}
}

func callPayload(call map[string]any) any {
	if call == nil {
		return nil
	}
	return call
}
