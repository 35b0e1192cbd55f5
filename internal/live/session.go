// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

// Package live owns the bidirectional streaming connection to the inference
// backend. One Session wraps one websocket connection: a single setup frame
// on open, then turns of input_text+commit out and a demultiplexed event
// stream back. Sessions are per conversation; they are not shareable across
// simultaneous logical conversations.
package live

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	fderr "github.com/frontdesk-dev/frontdesk/pkg/errors"
)

// DefaultReceiveTimeout bounds the wait for each inbound frame within a turn.
const DefaultReceiveTimeout = 120 * time.Second

// inboxSize bounds frames buffered between the connection reader and a turn
// consumer. A slow or abandoned consumer drops frames rather than stalling
// the reader.
const inboxSize = 256

// Config carries everything needed to open a Session.
type Config struct {
	// URL is the websocket endpoint of the streaming backend.
	URL string
	// APIKey is sent as a bearer token on the dial request.
	APIKey string

	Model             string
	SystemInstruction string
	Tools             []ToolSchema
	// ResponseModalities defaults to ["TEXT"].
	ResponseModalities []string
	// TurnDetection defaults to server-side detection.
	TurnDetection map[string]any
	// MaxOutputTokens defaults to 256.
	MaxOutputTokens int
	// SessionContext seeds the remote side with already-known identity and
	// locale so it need not re-ask.
	SessionContext map[string]any

	// ReceiveTimeout is the per-receive wait; DefaultReceiveTimeout if zero.
	ReceiveTimeout time.Duration

	// Dialer overrides the websocket dialer, for tests.
	Dialer *websocket.Dialer

	Logger *slog.Logger
}

// Session is one live connection. SendTurn must not be called concurrently;
// a second call while a turn is in flight is rejected.
type Session struct {
	cfg  Config
	conn *websocket.Conn
	log  *slog.Logger

	// turnMu serializes turns; held from SendTurn until its event stream
	// terminates.
	turnMu sync.Mutex

	// mu guards inbox and closed.
	mu     sync.Mutex
	inbox  chan Event
	closed bool
}

// Dial opens the websocket connection and sends the setup frame. Exactly one
// setup is sent per connection lifetime, before any input.
func Dial(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.URL == "" {
		return nil, fderr.New(fderr.CodeLiveDialFailure, "endpoint URL is required")
	}
	if cfg.ReceiveTimeout <= 0 {
		cfg.ReceiveTimeout = DefaultReceiveTimeout
	}
	if len(cfg.ResponseModalities) == 0 {
		cfg.ResponseModalities = []string{"TEXT"}
	}
	if cfg.TurnDetection == nil {
		cfg.TurnDetection = map[string]any{"type": "server", "threshold": 0.5}
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 256
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	header := http.Header{}
	if cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	conn, resp, err := dialer.DialContext(ctx, cfg.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fderr.Wrapf(err, fderr.CodeLiveDialFailure, "dialing %s: status %d", cfg.URL, resp.StatusCode)
		}
		return nil, fderr.Wrapf(err, fderr.CodeLiveDialFailure, "dialing %s", cfg.URL)
	}

	setup := setupFrame{
		Type:  frameSetup,
		Model: cfg.Model,
		Config: setupConfig{
			SystemInstruction:  cfg.SystemInstruction,
			Tools:              cfg.Tools,
			ResponseModalities: cfg.ResponseModalities,
			TurnDetection:      cfg.TurnDetection,
			GenerationConfig:   generationConfig{MaxOutputTokens: cfg.MaxOutputTokens},
		},
		SessionContext: cfg.SessionContext,
	}
	if err := conn.WriteJSON(setup); err != nil {
		_ = conn.Close()
		return nil, fderr.Wrapf(err, fderr.CodeLiveSetupFailure, "sending setup frame")
	}

	s := &Session{
		cfg:  cfg,
		conn: conn,
		log:  cfg.Logger,
	}
	go s.readLoop()

	return s, nil
}

// SendTurn sends one input_text followed by a commit marker, then yields
// inbound events until the remote ends the response, errors, or the
// per-receive timeout elapses. A timeout closes the stream without an error
// event; the session stays open and reusable for the next turn. The caller
// cancels ctx to abandon consumption early.
func (s *Session) SendTurn(ctx context.Context, text string) (<-chan Event, error) {
	if !s.turnMu.TryLock() {
		return nil, fderr.New(fderr.CodeLiveSessionBusy, "a turn is already in flight on this session")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.turnMu.Unlock()
		return nil, fderr.New(fderr.CodeLiveSessionClosed, "session is closed")
	}
	inbox := make(chan Event, inboxSize)
	s.inbox = inbox
	s.mu.Unlock()

	if err := s.conn.WriteJSON(inputTextFrame{Type: frameInputText, Text: text}); err != nil {
		s.endTurn()
		return nil, fderr.Wrapf(err, fderr.CodeLiveSendFailure, "sending input_text")
	}
	if err := s.conn.WriteJSON(commitFrame{Type: frameCommit}); err != nil {
		s.endTurn()
		return nil, fderr.Wrapf(err, fderr.CodeLiveSendFailure, "sending commit")
	}

	out := make(chan Event)
	go s.pump(ctx, inbox, out)
	return out, nil
}

// Close releases the transport. It is idempotent and safe even when open
// partially failed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

// readLoop pulls frames off the connection for the Session's entire lifetime
// and delivers them to the active turn. Frames arriving outside an active
// turn are dropped.
func (s *Session) readLoop() {
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			s.deliver(Event{Type: EventError, Err: err.Error()})
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		s.deliver(DecodeEvent(data))
	}
}

func (s *Session) deliver(ev Event) {
	s.mu.Lock()
	inbox := s.inbox
	s.mu.Unlock()

	if inbox == nil {
		s.log.Debug("dropping inbound frame outside active turn", slog.String("event", string(ev.Type)))
		return
	}
	select {
	case inbox <- ev:
	default:
		s.log.Warn("turn inbox full, dropping inbound frame", slog.String("event", string(ev.Type)))
	}
}

// pump forwards inbox events to the consumer, enforcing the per-receive
// timeout and consumer cancellation. It owns turn teardown.
func (s *Session) pump(ctx context.Context, inbox <-chan Event, out chan<- Event) {
	defer func() {
		s.detachInbox()
		close(out)
		s.turnMu.Unlock()
	}()

	timer := time.NewTimer(s.cfg.ReceiveTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			// Per-receive timeout: stop yielding, no error raised.
			s.log.Debug("receive timeout, ending turn")
			return
		case ev := <-inbox:
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
			if ev.Type == EventEnd || ev.Type == EventError {
				return
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.cfg.ReceiveTimeout)
		}
	}
}

func (s *Session) endTurn() {
	s.detachInbox()
	s.turnMu.Unlock()
}

func (s *Session) detachInbox() {
	s.mu.Lock()
	s.inbox = nil
	s.mu.Unlock()
}
