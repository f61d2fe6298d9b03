// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package a2a defines the wire types of the Agent-to-Agent protocol, version
// 0.3.0: agent descriptors, tasks, messages, parts, events and the JSON-RPC
// envelope that carries them over HTTP.
package a2a

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProtocolVersion is the A2A protocol version this gateway speaks.
const ProtocolVersion = "0.3.0"

// MessageRole identifies who produced a Message.
type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleAgent MessageRole = "agent"
)

// TaskState is the lifecycle state of a Task.
type TaskState string

const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateCanceled      TaskState = "canceled"
	TaskStateFailed        TaskState = "failed"
	TaskStateRejected      TaskState = "rejected"
	TaskStateAuthRequired  TaskState = "auth-required"
	TaskStateUnknown       TaskState = "unknown"
)

// IsTerminal reports whether state ends a task's lifecycle.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateCanceled, TaskStateFailed, TaskStateRejected:
		return true
	default:
		return false
	}
}

// Part is a tagged union of the content a Message or Artifact carries.
// Concrete implementations are TextPart, DataPart and FilePart, matching
// the "kind" discriminator on the wire.
type Part interface {
	PartKind() string
}

// TextPart carries plain or already-rendered text.
type TextPart struct {
	Kind     string         `json:"kind"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func NewTextPart(text string) *TextPart {
	return &TextPart{Kind: "text", Text: text}
}

func (p *TextPart) PartKind() string { return "text" }

// DataPart carries a structured payload labelled with a normalizer-assigned
// type such as "quick_replies" or "cognigy/data".
type DataPart struct {
	Kind     string         `json:"kind"`
	Type     string         `json:"type"`
	Payload  any            `json:"payload"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func NewDataPart(typ string, payload any) *DataPart {
	return &DataPart{Kind: "data", Type: typ, Payload: payload}
}

func (p *DataPart) PartKind() string { return "data" }

// FilePart references a remote media asset by URI.
type FilePart struct {
	Kind     string         `json:"kind"`
	URI      string         `json:"uri"`
	MIMEType string         `json:"mimeType,omitempty"`
	Name     string         `json:"name,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func NewFilePart(uri, mimeType, name string) *FilePart {
	return &FilePart{Kind: "file", URI: uri, MIMEType: mimeType, Name: name}
}

func (p *FilePart) PartKind() string { return "file" }

// Message is a single turn exchanged between a client and an agent.
type Message struct {
	Kind      string         `json:"kind"`
	MessageID string         `json:"messageId"`
	Role      MessageRole    `json:"role"`
	Parts     []Part         `json:"parts"`
	ContextID string         `json:"contextId,omitempty"`
	TaskID    string         `json:"taskId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewAgentMessage builds an agent-authored message bound to a task/context
// with one or more parts, generating a message id.
func NewAgentMessage(taskID, contextID string, parts ...Part) *Message {
	return &Message{
		Kind:      "message",
		MessageID: uuid.NewString(),
		Role:      RoleAgent,
		Parts:     parts,
		TaskID:    taskID,
		ContextID: contextID,
	}
}

// Validate checks that m carries the fields required on the wire.
func (m *Message) Validate() error {
	if m.MessageID == "" {
		return fmt.Errorf("message: messageId is required")
	}
	if m.Role != RoleUser && m.Role != RoleAgent {
		return fmt.Errorf("message: invalid role %q", m.Role)
	}
	if len(m.Parts) == 0 {
		return fmt.Errorf("message: at least one part is required")
	}
	return nil
}

// Artifact is a named bundle of parts a task produces.
type Artifact struct {
	ArtifactID  string         `json:"artifactId"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Parts       []Part         `json:"parts"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func NewArtifact(name string, parts ...Part) *Artifact {
	return &Artifact{ArtifactID: uuid.NewString(), Name: name, Parts: parts}
}

// TaskStatus is the current lifecycle state of a Task, with the message
// (if any) that accompanies the transition.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp string    `json:"timestamp"`
}

// Task is the unit of work a client tracks across one or more turns.
type Task struct {
	Kind      string         `json:"kind"`
	ID        string         `json:"id"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	History   []*Message     `json:"history,omitempty"`
	Artifacts []*Artifact    `json:"artifacts,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewTask creates a submitted task seeded with the originating message.
func NewTask(contextID string, initial *Message) *Task {
	if contextID == "" {
		contextID = uuid.NewString()
	}
	return &Task{
		Kind:      "task",
		ID:        uuid.NewString(),
		ContextID: contextID,
		Status: TaskStatus{
			State:     TaskStateSubmitted,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
		History: []*Message{initial},
	}
}

// Transition moves the task into a new state, recording the timestamp and
// optional accompanying message.
func (t *Task) Transition(state TaskState, msg *Message) {
	t.Status = TaskStatus{
		State:     state,
		Message:   msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if msg != nil {
		t.History = append(t.History, msg)
	}
}

// AppendArtifact merges a produced artifact into the task, replacing any
// existing artifact with the same id unless append is set, in which case
// its parts are concatenated onto the existing artifact.
func (t *Task) AppendArtifact(artifact *Artifact, append_ bool) {
	for i, existing := range t.Artifacts {
		if existing.ArtifactID != artifact.ArtifactID {
			continue
		}
		if append_ {
			existing.Parts = append(existing.Parts, artifact.Parts...)
		} else {
			t.Artifacts[i] = artifact
		}
		return
	}
	t.Artifacts = append(t.Artifacts, artifact)
}

// TaskStatusUpdateEvent announces a Task's status transition during a
// streamed invocation.
type TaskStatusUpdateEvent struct {
	Kind      string         `json:"kind"`
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	Final     bool           `json:"final"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// TaskArtifactUpdateEvent announces a produced or extended Artifact during
// a streamed invocation.
type TaskArtifactUpdateEvent struct {
	Kind      string         `json:"kind"`
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Artifact  *Artifact      `json:"artifact"`
	Append    bool           `json:"append"`
	LastChunk bool           `json:"lastChunk"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// AgentCapabilities lists which optional A2A features an agent supports.
// PushNotifications is always false: this gateway does not implement the
// push-notification subscription methods.
type AgentCapabilities struct {
	Streaming              bool `json:"streaming"`
	PushNotifications      bool `json:"pushNotifications"`
	StateTransitionHistory bool `json:"stateTransitionHistory"`
}

// AgentSkill describes one capability an agent advertises in its card.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

// AgentCard is the discovery document served per agent at
// /agents/{id}/.well-known/agent-card.json.
type AgentCard struct {
	ProtocolVersion   string            `json:"protocolVersion"`
	Name              string            `json:"name"`
	Description       string            `json:"description"`
	URL               string            `json:"url"`
	Version           string            `json:"version"`
	Capabilities      AgentCapabilities `json:"capabilities"`
	DefaultInputModes []string          `json:"defaultInputModes"`
	DefaultOutputModes []string         `json:"defaultOutputModes"`
	Skills            []AgentSkill      `json:"skills"`
}

// Validate checks that the card satisfies the minimal discovery contract.
func (c *AgentCard) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("agent card: name is required")
	}
	if c.URL == "" {
		return fmt.Errorf("agent card: url is required")
	}
	if c.ProtocolVersion == "" {
		return fmt.Errorf("agent card: protocolVersion is required")
	}
	if len(c.Skills) == 0 {
		return fmt.Errorf("agent card: at least one skill is required")
	}
	return nil
}

// MessageSendParams is the params object of a message/send or
// message/stream request.
type MessageSendParams struct {
	Message  *Message       `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (p *MessageSendParams) Validate() error {
	if p.Message == nil {
		return fmt.Errorf("message send params: message is required")
	}
	return p.Message.Validate()
}

// TaskIDParams is the params object of a tasks/cancel request.
type TaskIDParams struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TaskQueryParams is the params object of a tasks/get request.
type TaskQueryParams struct {
	ID            string         `json:"id"`
	HistoryLength int            `json:"historyLength,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// JSON-RPC 2.0 method names recognized by the gateway's HTTP surface.
const (
	MethodMessageSend   = "message/send"
	MethodMessageStream = "message/stream"
	MethodTasksGet      = "tasks/get"
	MethodTasksCancel   = "tasks/cancel"
)

// JSONRPCRequest is a decoded JSON-RPC 2.0 request envelope. Params is kept
// raw (json.RawMessage-compatible any) so the handler can dispatch on
// Method before decoding the concrete params type.
type JSONRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// JSONRPCSuccessResponse wraps a successful JSON-RPC result.
type JSONRPCSuccessResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result"`
}

func NewJSONRPCSuccessResponse(id, result any) *JSONRPCSuccessResponse {
	return &JSONRPCSuccessResponse{JSONRPC: "2.0", ID: id, Result: result}
}

// JSONRPCError is the error object of a JSON-RPC 2.0 error response.
type JSONRPCError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *JSONRPCError) Error() string { return e.Message }

// JSONRPCErrorResponse wraps a failed JSON-RPC call.
type JSONRPCErrorResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      any           `json:"id"`
	Error   *JSONRPCError `json:"error"`
}

func NewJSONRPCErrorResponse(id any, err *JSONRPCError) *JSONRPCErrorResponse {
	return &JSONRPCErrorResponse{JSONRPC: "2.0", ID: id, Error: err}
}

// Standard JSON-RPC 2.0 error codes plus the A2A-specific range
// (-32001 through -32099) this gateway raises.
const (
	CodeJSONParseError     int64 = -32700
	CodeInvalidRequest     int64 = -32600
	CodeMethodNotFound     int64 = -32601
	CodeInvalidParams      int64 = -32602
	CodeInternalError      int64 = -32603
	CodeTaskNotFound       int64 = -32001
	CodeTaskNotCancelable  int64 = -32002
	CodeUnsupportedOperation int64 = -32004
	CodeUpstreamUnavailable  int64 = -32010
	CodeUpstreamTimeout      int64 = -32011
)

func NewJSONParseError(detail string) *JSONRPCError {
	return &JSONRPCError{Code: CodeJSONParseError, Message: "invalid JSON payload", Data: detail}
}

func NewInvalidRequestError(detail string) *JSONRPCError {
	return &JSONRPCError{Code: CodeInvalidRequest, Message: "invalid request", Data: detail}
}

func NewMethodNotFoundError(method string) *JSONRPCError {
	return &JSONRPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", method)}
}

func NewInvalidParamsError(detail string) *JSONRPCError {
	return &JSONRPCError{Code: CodeInvalidParams, Message: "invalid params", Data: detail}
}

func NewInternalError(detail string) *JSONRPCError {
	return &JSONRPCError{Code: CodeInternalError, Message: "internal error", Data: detail}
}

func NewTaskNotFoundError(taskID string) *JSONRPCError {
	return &JSONRPCError{Code: CodeTaskNotFound, Message: fmt.Sprintf("task not found: %s", taskID)}
}

func NewTaskNotCancelableError(taskID string) *JSONRPCError {
	return &JSONRPCError{Code: CodeTaskNotCancelable, Message: fmt.Sprintf("task not cancelable: %s", taskID)}
}

func NewUnsupportedOperationError(detail string) *JSONRPCError {
	return &JSONRPCError{Code: CodeUnsupportedOperation, Message: "unsupported operation", Data: detail}
}

func NewUpstreamUnavailableError(detail string) *JSONRPCError {
	return &JSONRPCError{Code: CodeUpstreamUnavailable, Message: "upstream unavailable", Data: detail}
}

func NewUpstreamTimeoutError(detail string) *JSONRPCError {
	return &JSONRPCError{Code: CodeUpstreamTimeout, Message: "upstream timeout", Data: detail}
}
