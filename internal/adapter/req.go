// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sngueneko/cognigy-a2a-gateway/internal/bufpool"
	"github.com/sngueneko/cognigy-a2a-gateway/internal/normalizer"
)

// reqTimeout is the §4.2 per-call ceiling, inclusive of connect and
// response.
const reqTimeout = 8 * time.Second

// Req is the one-shot request/response upstream strategy: a single HTTP
// POST against the agent's REQ endpoint, returning the full output list.
// Grounded on the teacher's A2AClient.sendRequest in client.go, adapted
// from A2A-client-to-A2A-server to gateway-to-Cognigy-backend.
type Req struct {
	HTTPClient *http.Client
	BaseURL    string
	Token      string
	Tracer     trace.Tracer
	Logger     *slog.Logger
}

var _ Sender = (*Req)(nil)

// NewReq builds a Req adapter bound to one agent's endpoint.
func NewReq(baseURL, token string) *Req {
	return &Req{
		HTTPClient: &http.Client{Timeout: reqTimeout},
		BaseURL:    baseURL,
		Token:      token,
		Tracer:     otel.GetTracerProvider().Tracer("github.com/sngueneko/cognigy-a2a-gateway/adapter"),
		Logger:     slog.Default(),
	}
}

func (r *Req) Kind() Kind { return KindReq }

type reqBody struct {
	UserID    string         `json:"userId"`
	SessionID string         `json:"sessionId"`
	Text      string         `json:"text"`
	Data      map[string]any `json:"data,omitempty"`
}

type reqResponse struct {
	OutputStack []rawEntry `json:"outputStack"`
}

// rawEntry mirrors one upstream outputStack entry. Data is decoded as
// `any` because the backend sometimes sends it as a JSON-encoded string
// rather than a nested object (§4.2 step 1).
type rawEntry struct {
	Text string `json:"text"`
	Data any    `json:"data"`
}

func (e rawEntry) dataMap() map[string]any {
	switch d := e.Data.(type) {
	case map[string]any:
		return d
	case string:
		if d == "" {
			return nil
		}
		var m map[string]any
		if err := sonic.UnmarshalString(d, &m); err != nil {
			return nil
		}
		return m
	default:
		return nil
	}
}

// Send performs one HTTP round trip and returns the full, unwrapped output
// list. cb is accepted to satisfy Sender but is never invoked: the REQ
// path has no streaming callback per §4.2.
func (r *Req) Send(sc SendContext, cb Callback) ([]normalizer.RawOutput, error) {
	ctx, cancel := context.WithTimeout(context.Background(), reqTimeout)
	defer cancel()

	ctx, span := r.Tracer.Start(ctx, "adapter.req.Send",
		trace.WithAttributes(
			attribute.String("gateway.session_id", sc.SessionID),
		))
	defer span.End()

	body := reqBody{UserID: sc.UserID, SessionID: sc.SessionID, Text: sc.Text}
	if sc.HasData {
		body.Data = sc.Data
	}

	buf := bufpool.Bytes.Get()
	defer bufpool.Bytes.Put(buf)
	enc, err := sonic.Marshal(body)
	if err != nil {
		return nil, newErr(ErrNetwork, fmt.Errorf("encode request body: %w", err))
	}
	buf.Write(enc)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpointURL(), bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, newErr(ErrNetwork, fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := r.HTTPClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, newErr(ErrTimeout, err)
		}
		return nil, newErr(ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBuf := bufpool.Bytes.Get()
	defer bufpool.Bytes.Put(respBuf)
	if _, err := io.Copy(respBuf, resp.Body); err != nil {
		return nil, newErr(ErrNetwork, fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Kind: ErrHTTP, StatusCode: resp.StatusCode, Cause: fmt.Errorf("upstream returned %s", resp.Status)}
	}

	var parsed reqResponse
	if err := sonic.Unmarshal(respBuf.Bytes(), &parsed); err != nil {
		return nil, newErr(ErrHTTP, fmt.Errorf("decode response body: %w", err))
	}

	outs := filterAndExpand(parsed.OutputStack)
	r.Logger.DebugContext(ctx, "adapter.req: call complete", slog.Int("outputs", len(outs)))
	return outs, nil
}

func (r *Req) endpointURL() string {
	base := strings.TrimSuffix(r.BaseURL, "/")
	return base + "/" + r.Token
}

// filterAndExpand implements §4.2 response-handling steps 1-2: drop
// internal metadata entries, then unwrap every surviving entry.
func filterAndExpand(entries []rawEntry) []normalizer.RawOutput {
	var outs []normalizer.RawOutput
	for _, e := range entries {
		data := e.dataMap()
		if e.Text == "" && isInternalMetadataEnvelope(data) {
			continue
		}
		outs = append(outs, unwrap(e.Text, e.Text != "", data)...)
	}
	return outs
}
