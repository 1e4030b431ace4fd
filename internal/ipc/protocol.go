package ipc

import (
	"encoding/json"
	"fmt"
	"time"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandStatus        CommandType = "STATUS"
	CommandRun           CommandType = "RUN"
	CommandExec          CommandType = "EXEC"
	CommandUndo          CommandType = "UNDO"
	CommandMonitors      CommandType = "MONITORS"
	CommandLayoutSave    CommandType = "LAYOUT_SAVE"
	CommandLayoutRestore CommandType = "LAYOUT_RESTORE"
	CommandLayoutList    CommandType = "LAYOUT_LIST"
	CommandLayoutDelete  CommandType = "LAYOUT_DELETE"
	CommandQuit          CommandType = "QUIT"
)

const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// Request represents an IPC request from client to server
type Request struct {
	ID      string          `json:"id,omitempty"`
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	ID     string          `json:"id,omitempty"`
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by STATUS
type StatusData struct {
	Version        string `json:"version"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
	Bindings       int    `json:"bindings"`
	TrackedWindows int    `json:"tracked_windows"`
	Monitors       int    `json:"monitors"`
	EventsHandled  uint64 `json:"events_handled"`
	EventsDropped  uint64 `json:"events_dropped"`
	EventsSlow     uint64 `json:"events_slow"`
	Pending        int    `json:"pending"`
	MaxLatencyMS   int64  `json:"max_latency_ms"`
}

// MonitorInfo represents information about a single monitor
type MonitorInfo struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Ordinal int    `json:"ordinal"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// MonitorsData represents the data returned by MONITORS
type MonitorsData struct {
	Monitors []MonitorInfo `json:"monitors"`
}

// TextPayload carries launcher text for RUN.
type TextPayload struct {
	Text string `json:"text"`
}

// ExecPayload names a command for EXEC, e.g. "tile_left_half".
type ExecPayload struct {
	Name string `json:"name"`
}

// LayoutPayload names a saved layout.
type LayoutPayload struct {
	Name string `json:"name"`
}

// RunData reports what a RUN, EXEC or UNDO request did.
type RunData struct {
	Command string `json:"command"`
	Result  string `json:"result,omitempty"`
}

type LayoutInfo struct {
	Name    string    `json:"name"`
	Windows int       `json:"windows"`
	SavedAt time.Time `json:"saved_at"`
}

type LayoutsData struct {
	Layouts []LayoutInfo `json:"layouts"`
}

// LayoutResult reports how many windows a layout operation touched.
type LayoutResult struct {
	Name    string `json:"name"`
	Windows int    `json:"windows"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: StatusOK,
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: StatusError,
		Error:  errMsg,
	}
}

// NewRequest builds a request with an optional payload.
func NewRequest(cmd CommandType, payload interface{}) (*Request, error) {
	req := &Request{Command: cmd}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = data
	}
	return req, nil
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	if req.Command == "" {
		return nil, fmt.Errorf("failed to parse request: command is required")
	}
	return &req, nil
}

// DecodePayload unmarshals the request payload into v.
func (r *Request) DecodePayload(v interface{}) error {
	if len(r.Payload) == 0 {
		return fmt.Errorf("%s requires a payload", r.Command)
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("invalid %s payload: %w", r.Command, err)
	}
	return nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
