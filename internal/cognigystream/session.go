// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package cognigystream implements adapter.Session over a WebSocket
// connection to one upstream STREAM endpoint, the concrete counterpart the
// Stream Adapter dials per invocation (spec.md §4.3, §9's per-invocation-
// session design note). Grounded on cklxx-elephant.ai's
// internal/tools/builtin/chromebridge (gorilla/websocket dial, a
// write-mutex-guarded connection, and a read-loop goroutine fanning
// messages out), adapted from a JSON-RPC bridge to the gateway's
// output/finalPing/disconnect/error event vocabulary.
package cognigystream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sngueneko/cognigy-a2a-gateway/internal/adapter"
)

// wireMessage is the JSON frame exchanged with the upstream endpoint.
// "message" frames are client-to-server; "output"/"finalPing"/"error" are
// server-to-client.
type wireMessage struct {
	Event     string         `json:"event"`
	UserID    string         `json:"userId,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
	Text      string         `json:"text,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Session dials one WebSocket connection per invocation and translates
// its frames into adapter.SessionEvent values.
type Session struct {
	url       string
	dialer    *websocket.Dialer
	userID    string
	sessionID string

	writeMu sync.Mutex
	conn    *websocket.Conn

	events chan adapter.SessionEvent
	once   sync.Once
	logger *slog.Logger
}

var _ adapter.Session = (*Session)(nil)

// New returns a Session that will dial url (the agent's STREAM endpoint
// with its token path segment already appended) on Connect.
func New(url string) *Session {
	return &Session{
		url:    url,
		dialer: websocket.DefaultDialer,
		events: make(chan adapter.SessionEvent, 32),
		logger: slog.Default(),
	}
}

// NewSessionFactory adapts New into an adapter.SessionFactory, building
// the endpoint URL the same way the Req Adapter does (strip one trailing
// slash, append the token). Each session carries the caller's user and
// session ids on its "message" frame.
func NewSessionFactory() adapter.SessionFactory {
	return func(baseURL, token, userID, sessionID string) adapter.Session {
		s := New(strings.TrimSuffix(baseURL, "/") + "/" + token)
		s.userID, s.sessionID = userID, sessionID
		return s
	}
}

// Connect dials the WebSocket endpoint and starts the read loop.
func (s *Session) Connect(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("cognigystream: dial %q: %w", s.url, err)
	}
	s.conn = conn
	go s.readLoop()
	return nil
}

// SendMessage transmits the user's turn as a single "message" frame.
func (s *Session) SendMessage(ctx context.Context, text string, data map[string]any, hasData bool) error {
	msg := wireMessage{Event: "message", UserID: s.userID, SessionID: s.sessionID, Text: text}
	if hasData {
		msg.Data = data
	}
	return s.writeJSON(msg)
}

func (s *Session) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("cognigystream: not connected")
	}
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteJSON(v)
}

func (s *Session) Events() <-chan adapter.SessionEvent { return s.events }

// Close tears the connection down and closes the event channel exactly
// once, regardless of how many times Close is called.
func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		if s.conn != nil {
			err = s.conn.Close()
		}
		close(s.events)
	})
	return err
}

func (s *Session) readLoop() {
	for {
		var msg wireMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			s.emit(adapter.SessionEvent{Kind: adapter.SessionEventDisconnect, Err: err})
			return
		}
		switch msg.Event {
		case "output":
			s.emit(adapter.SessionEvent{Kind: adapter.SessionEventOutput, Text: msg.Text, Data: msg.Data})
		case "finalPing":
			s.emit(adapter.SessionEvent{Kind: adapter.SessionEventFinalPing})
			return
		case "error":
			s.emit(adapter.SessionEvent{Kind: adapter.SessionEventError, Err: fmt.Errorf("%s", msg.Error)})
			return
		default:
			s.logger.Warn("cognigystream: unknown event frame", slog.String("event", msg.Event))
		}
	}
}

// emit delivers ev, dropping it if the session has already been closed
// (the channel send would otherwise panic on a closed channel).
func (s *Session) emit(ev adapter.SessionEvent) {
	defer func() { recover() }()
	s.events <- ev
}
