package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func startTestServer(t *testing.T, h Handler) (*Server, *Client) {
	t.Helper()
	// Unix socket paths are length limited; t.TempDir can be too deep.
	dir, err := os.MkdirTemp("", "ks")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "s.sock")

	srv := NewServer(path, h, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv, NewClientAt(path)
}

func echoHandler(t *testing.T) Handler {
	return HandlerFunc(func(ctx context.Context, req *Request) *Response {
		switch req.Command {
		case CommandStatus:
			resp, err := NewOKResponse(StatusData{Version: "test", Bindings: 3})
			if err != nil {
				t.Errorf("NewOKResponse: %v", err)
			}
			return resp
		case CommandRun:
			var p TextPayload
			if err := req.DecodePayload(&p); err != nil {
				return NewErrorResponse(err.Error())
			}
			resp, _ := NewOKResponse(RunData{Command: "calculate", Result: p.Text})
			return resp
		case CommandLayoutDelete:
			return NewErrorResponse("layout not found")
		default:
			resp, _ := NewOKResponse(nil)
			return resp
		}
	})
}

func TestClientServerRoundTrip(t *testing.T) {
	_, client := startTestServer(t, echoHandler(t))

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Version != "test" || status.Bindings != 3 {
		t.Fatalf("unexpected status %+v", status)
	}

	run, err := client.Run("7/2")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Result != "7/2" {
		t.Fatalf("expected payload echoed, got %+v", run)
	}

	if err := client.Quit(); err != nil {
		t.Fatalf("Quit: %v", err)
	}
}

func TestClientReportsDaemonError(t *testing.T) {
	_, client := startTestServer(t, echoHandler(t))

	err := client.DeleteLayout("missing")
	var derr *DaemonError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DaemonError, got %v", err)
	}
	if derr.Command != CommandLayoutDelete || !strings.Contains(derr.Message, "layout not found") {
		t.Fatalf("unexpected daemon error %+v", derr)
	}
}

func TestServerEchoesRequestID(t *testing.T) {
	srv, _ := startTestServer(t, echoHandler(t))

	conn, err := net.Dial("unix", srv.SocketPath())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(`{"id":"abc","command":"STATUS"}` + "\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if resp.ID != "abc" || resp.Status != StatusOK {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestServerRejectsMalformedRequest(t *testing.T) {
	srv, _ := startTestServer(t, echoHandler(t))

	conn, err := net.Dial("unix", srv.SocketPath())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("not json\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if resp.Status != StatusError || !strings.Contains(resp.Error, "Invalid request") {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestClientWithoutDaemon(t *testing.T) {
	client := NewClientAt(filepath.Join(t.TempDir(), "absent.sock"))
	if err := client.Ping(); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestParseRequestRequiresCommand(t *testing.T) {
	if _, err := ParseRequest([]byte(`{"id":"x"}`)); err == nil {
		t.Fatal("expected error for missing command")
	}
	req, err := ParseRequest([]byte(`{"command":"EXEC","payload":{"name":"undo"}}`))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	var p ExecPayload
	if err := req.DecodePayload(&p); err != nil || p.Name != "undo" {
		t.Fatalf("DecodePayload = %+v, %v", p, err)
	}
}

func TestDecodePayloadMissing(t *testing.T) {
	req := &Request{Command: CommandRun}
	var p TextPayload
	if err := req.DecodePayload(&p); err == nil {
		t.Fatal("expected error for missing payload")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	srv, _ := startTestServer(t, echoHandler(t))
	srv.Stop()
	srv.Stop()
	if _, err := os.Stat(srv.SocketPath()); !os.IsNotExist(err) {
		t.Fatalf("socket should be removed, stat err = %v", err)
	}
}
