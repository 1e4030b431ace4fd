package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/1broseidon/keyshell/internal/runtimepath"
)

// DaemonError is an ERROR response from the daemon.
type DaemonError struct {
	Command CommandType
	Message string
}

func (e *DaemonError) Error() string {
	return "daemon error: " + e.Message
}

// Client sends one request per connection to the daemon socket.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient targets the default socket. A path that cannot be resolved
// surfaces as a dial error on first use.
func NewClient() *Client {
	path, _ := runtimepath.SocketPath()
	return NewClientAt(path)
}

func NewClientAt(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: DefaultRequestTimeout}
}

// roundTrip writes req as one JSON line and reads the matching response.
func (c *Client) roundTrip(req *Request) (*Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon (is it running?): %w", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	// Encode terminates the value with a newline, which frames the request.
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("send %s: %w", req.Command, err)
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("read %s response: %w", req.Command, err)
	}
	if resp.ID != "" && resp.ID != req.ID {
		return nil, fmt.Errorf("response id %s does not match request %s", resp.ID, req.ID)
	}
	if resp.Status == StatusError {
		return nil, &DaemonError{Command: req.Command, Message: resp.Error}
	}
	return &resp, nil
}

func (c *Client) call(cmd CommandType, payload, out interface{}) error {
	req, err := NewRequest(cmd, payload)
	if err != nil {
		return err
	}
	resp, err := c.roundTrip(req)
	if err != nil || out == nil {
		return err
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", cmd, err)
	}
	return nil
}

// fetch calls cmd and decodes its data into a new T.
func fetch[T any](c *Client, cmd CommandType, payload interface{}) (*T, error) {
	out := new(T)
	if err := c.call(cmd, payload, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Status() (*StatusData, error) {
	return fetch[StatusData](c, CommandStatus, nil)
}

// Run sends launcher text, e.g. "vol 40" or "7/2".
func (c *Client) Run(text string) (*RunData, error) {
	return fetch[RunData](c, CommandRun, TextPayload{Text: text})
}

// Exec runs a named command such as "tile_left_half".
func (c *Client) Exec(name string) (*RunData, error) {
	return fetch[RunData](c, CommandExec, ExecPayload{Name: name})
}

// Undo reverts the last geometry change of the active window.
func (c *Client) Undo() (*RunData, error) {
	return fetch[RunData](c, CommandUndo, nil)
}

func (c *Client) Monitors() (*MonitorsData, error) {
	return fetch[MonitorsData](c, CommandMonitors, nil)
}

// SaveLayout records the current window arrangement under name.
func (c *Client) SaveLayout(name string) (*LayoutResult, error) {
	return fetch[LayoutResult](c, CommandLayoutSave, LayoutPayload{Name: name})
}

// RestoreLayout moves windows back to a saved arrangement.
func (c *Client) RestoreLayout(name string) (*LayoutResult, error) {
	return fetch[LayoutResult](c, CommandLayoutRestore, LayoutPayload{Name: name})
}

func (c *Client) ListLayouts() (*LayoutsData, error) {
	return fetch[LayoutsData](c, CommandLayoutList, nil)
}

func (c *Client) DeleteLayout(name string) error {
	return c.call(CommandLayoutDelete, LayoutPayload{Name: name}, nil)
}

// Quit asks the daemon to shut down.
func (c *Client) Quit() error {
	return c.call(CommandQuit, nil, nil)
}

// Ping reports whether a daemon answers on the socket.
func (c *Client) Ping() error {
	_, err := c.Status()
	return err
}
