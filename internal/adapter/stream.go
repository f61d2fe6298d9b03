// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sngueneko/cognigy-a2a-gateway/internal/normalizer"
)

// sessionTimeout is the §4.3 hard upper bound on one Stream Adapter call.
const sessionTimeout = 60 * time.Second

// SessionEventKind discriminates the four events §4.3 subscribes to.
type SessionEventKind string

const (
	SessionEventOutput     SessionEventKind = "output"
	SessionEventFinalPing  SessionEventKind = "finalPing"
	SessionEventDisconnect SessionEventKind = "disconnect"
	SessionEventError      SessionEventKind = "error"
)

// SessionEvent is one event delivered by a Session over its Events
// channel.
type SessionEvent struct {
	Kind SessionEventKind
	Text string
	Data map[string]any
	Err  error
}

// Session is a dedicated, per-invocation persistent connection to the
// upstream STREAM backend. The gateway constructs one fresh Session per
// Send call (per §4.3 and the design note in spec.md §9: per-invocation
// session, not a shared connection, to avoid cross-session output
// pollution). The concrete implementation speaking the Cognigy WebSocket
// wire protocol lives outside this package; Stream only depends on this
// interface, mirroring how client/stream.go's StreamConn wraps a bare
// io.ReadCloser behind a narrow event-reading contract.
type Session interface {
	// Connect establishes the underlying connection.
	Connect(ctx context.Context) error
	// SendMessage transmits the user text and optional data payload.
	SendMessage(ctx context.Context, text string, data map[string]any, hasData bool) error
	// Events returns the channel the session delivers SessionEvents on.
	// The channel is closed once the session is torn down.
	Events() <-chan SessionEvent
	// Close tears the session down. Idempotent.
	Close() error
}

// SessionFactory constructs a fresh Session bound to one user/session id
// pair, matching the Connection Pool's agent-level client handle but
// scoped per call rather than pooled (§4.3's isolation requirement).
type SessionFactory func(agentBaseURL, agentToken, userID, sessionID string) Session

// Stream is the persistent-bidirectional-session upstream strategy.
// Grounded on client/stream.go's event-subscription loop (ReadEvent /
// ReadTaskStatusUpdateEvent), adapted from a client reading SSE frames
// from an A2A server to a gateway driving a Cognigy session to
// completion.
type Stream struct {
	NewSession SessionFactory
	BaseURL    string
	Token      string
	Tracer     trace.Tracer
	Logger     *slog.Logger
	// Timeout overrides sessionTimeout; used by tests to avoid a real
	// 60-second wait. Zero means sessionTimeout.
	Timeout time.Duration
}

var _ Sender = (*Stream)(nil)

// NewStream builds a Stream adapter bound to one agent's endpoint.
func NewStream(baseURL, token string, factory SessionFactory) *Stream {
	return &Stream{
		NewSession: factory,
		BaseURL:    baseURL,
		Token:      token,
		Tracer:     otel.GetTracerProvider().Tracer("github.com/sngueneko/cognigy-a2a-gateway/adapter"),
		Logger:     slog.Default(),
	}
}

func (s *Stream) Kind() Kind { return KindStream }

// Send implements §4.3's session lifecycle: connect, send, subscribe,
// settle exactly once on finalPing/disconnect/error/timeout, always tear
// down. The returned output list is the complete buffered sequence; the
// spec notes the STREAM executor path ignores it (open question, §9) but
// the adapter still assembles it so it can be reused in a future
// non-streaming mode.
func (s *Stream) Send(sc SendContext, cb Callback) ([]normalizer.RawOutput, error) {
	timeout := s.Timeout
	if timeout == 0 {
		timeout = sessionTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ctx, span := s.Tracer.Start(ctx, "adapter.stream.Send",
		trace.WithAttributes(attribute.String("gateway.session_id", sc.SessionID)))
	defer span.End()

	session := s.NewSession(s.BaseURL, s.Token, sc.UserID, sc.SessionID)
	if err := session.Connect(ctx); err != nil {
		return nil, newErr(ErrConnectFailed, err)
	}
	defer session.Close()

	if err := session.SendMessage(ctx, sc.Text, sc.Data, sc.HasData); err != nil {
		return nil, newErr(ErrNetwork, err)
	}

	var (
		mu       sync.Mutex
		settled  bool
		buffered []normalizer.RawOutput
		index    int
	)

	settle := func(outs []normalizer.RawOutput, err error) ([]normalizer.RawOutput, error) {
		mu.Lock()
		defer mu.Unlock()
		if settled {
			return nil, errAlreadySettled
		}
		settled = true
		return outs, err
	}

	for {
		select {
		case <-ctx.Done():
			out, err := settle(buffered, newErr(ErrSessionTimeout, ctx.Err()))
			if err == errAlreadySettled {
				return buffered, nil
			}
			return out, err

		case ev, ok := <-session.Events():
			if !ok {
				out, err := settle(buffered, newErr(ErrDisconnect, fmt.Errorf("session closed without finalPing")))
				if err == errAlreadySettled {
					return buffered, nil
				}
				return out, err
			}

			switch ev.Kind {
			case SessionEventOutput:
				for _, raw := range unwrap(ev.Text, ev.Text != "", ev.Data) {
					mu.Lock()
					buffered = append(buffered, raw)
					idx := index
					index++
					mu.Unlock()
					invokeCallback(cb, raw, idx, s.Logger)
				}

			case SessionEventFinalPing:
				out, err := settle(buffered, nil)
				if err == errAlreadySettled {
					return buffered, nil
				}
				return out, err

			case SessionEventDisconnect:
				out, err := settle(buffered, newErr(ErrDisconnect, ev.Err))
				if err == errAlreadySettled {
					return buffered, nil
				}
				return out, err

			case SessionEventError:
				out, err := settle(buffered, newErr(ErrSocket, ev.Err))
				if err == errAlreadySettled {
					return buffered, nil
				}
				return out, err
			}
		}
	}
}

var errAlreadySettled = fmt.Errorf("adapter: session already settled")

// invokeCallback runs cb defensively: a panic or (via recover) a caller
// error must not abort the session, per §4.3's callback contract.
func invokeCallback(cb Callback, raw normalizer.RawOutput, index int, logger *slog.Logger) {
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("adapter.stream: output callback panicked", slog.Any("recover", r))
		}
	}()
	cb(raw, index)
}
