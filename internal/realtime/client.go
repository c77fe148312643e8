// Package realtime maintains the duplex connection to the external realtime
// speech/AI service. Audio chunks flow out; transcript and analysis events
// flow back over an event channel.
package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Event kinds yielded by the client.
const (
	EventTranscript = "transcript"
	EventAnalysis   = "analysis"
)

// Suggestion is one structured follow-up proposal returned by the model's
// submit_interview_suggestions tool call.
type Suggestion struct {
	Type      string `json:"type"` // deep_dive, jd_alignment, strategic
	Question  string `json:"question"`
	Reasoning string `json:"reasoning"`
}

// Event is a decoded inbound event from the realtime service.
type Event struct {
	Kind        string
	Text        string // transcript events
	IsFinal     bool
	Suggestions []Suggestion // analysis events
}

// Service is the interface the gateway consumes; it exists so tests can
// stand in a fake without dialing anything.
type Service interface {
	Connect(ctx context.Context) error
	SendAudio(audio []byte) error
	SendTextInstruction(text string) error
	Events() <-chan Event
	Close() error
}

// Client speaks the realtime wire protocol over a WebSocket.
// It is not restartable: after the stream ends a new Client is required.
type Client struct {
	url    string
	apiKey string

	conn   *websocket.Conn
	events chan Event
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
}

var _ Service = (*Client)(nil)

// NewClient creates a realtime client for the given endpoint.
func NewClient(url, apiKey string) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
}

// Connect dials the realtime service, transmits the one-time session
// configuration, and starts the inbound read loop.
func (c *Client) Connect(ctx context.Context) error {
	header := http.Header{}
	if c.apiKey != "" {
		header.Set("Authorization", "Bearer "+c.apiKey)
		header.Set("OpenAI-Beta", "realtime=v1")
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return fmt.Errorf("failed to dial realtime service: %w", err)
	}
	c.conn = conn

	if err := c.sendJSON(map[string]interface{}{
		"type":    "session.update",
		"session": sessionConfig(),
	}); err != nil {
		conn.Close()
		// Leave the client connectionless so Close does not wait for a
		// read loop that was never started.
		c.conn = nil
		return fmt.Errorf("failed to send session config: %w", err)
	}

	go c.readLoop()
	return nil
}

// SendAudio forwards one raw audio chunk. The chunk is base64-encoded into
// the JSON event; nothing is buffered beyond it. No-op once the stream is
// down.
func (c *Client) SendAudio(audio []byte) error {
	if c.conn == nil || c.closed.Load() {
		return nil
	}
	return c.sendJSON(map[string]interface{}{
		"type":  "input_audio_buffer.append",
		"audio": base64.StdEncoding.EncodeToString(audio),
	})
}

// SendTextInstruction injects a user text message and asks the model to
// respond, which triggers a fresh round of tool-call suggestions.
func (c *Client) SendTextInstruction(text string) error {
	if c.conn == nil || c.closed.Load() {
		return nil
	}
	if err := c.sendJSON(map[string]interface{}{
		"type": "conversation.item.create",
		"item": map[string]interface{}{
			"type": "message",
			"role": "user",
			"content": []map[string]interface{}{
				{"type": "input_text", "text": text},
			},
		},
	}); err != nil {
		return err
	}
	return c.sendJSON(map[string]interface{}{
		"type": "response.create",
		"response": map[string]interface{}{
			"modalities":   []string{"text"},
			"instructions": "Please generate suggestions now.",
		},
	})
}

// Events yields decoded inbound events in arrival order. The channel is
// closed when the underlying stream closes or errors.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Close terminates the connection and waits for the read loop to finish.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	})
	<-c.done
	return nil
}

func (c *Client) sendJSON(v interface{}) error {
	if c.closed.Load() {
		return nil
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// inboundEvent covers the fields of every inbound message kind we care about.
type inboundEvent struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
	Arguments  string `json:"arguments"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// toolArguments is the payload of the suggestion tool call.
type toolArguments struct {
	Suggestions []Suggestion `json:"suggestions"`
}

func (c *Client) readLoop() {
	defer func() {
		c.closed.Store(true)
		close(c.events)
		close(c.done)
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Realtime stream error: %v", err)
			}
			return
		}

		var ev inboundEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			// A single bad message is not fatal to the stream.
			log.Printf("Skipping undecodable realtime message: %v", err)
			continue
		}

		switch ev.Type {
		case "conversation.item.input_audio_transcription.completed":
			c.events <- Event{Kind: EventTranscript, Text: ev.Transcript, IsFinal: true}

		case "response.function_call_arguments.done":
			var args toolArguments
			if err := json.Unmarshal([]byte(ev.Arguments), &args); err != nil {
				log.Printf("Failed to parse tool call arguments: %v", err)
				continue
			}
			c.events <- Event{Kind: EventAnalysis, Suggestions: args.Suggestions}

		case "error":
			if ev.Error != nil {
				log.Printf("Realtime service error: %s", ev.Error.Message)
			}
		}
		// All other inbound event kinds are discarded.
	}
}
