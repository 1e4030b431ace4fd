package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/keyshell/internal/ipc"
)

type fakeDaemon struct {
	runs     []string
	execs    []string
	layouts  map[string]int
	execErr  error
	monitors []ipc.MonitorInfo
}

func newFakeDaemon() *fakeDaemon {
	return &fakeDaemon{layouts: map[string]int{}}
}

func (f *fakeDaemon) Status() (*ipc.StatusData, error) {
	return &ipc.StatusData{Version: "1.2.3", Bindings: 4, Monitors: len(f.monitors)}, nil
}

func (f *fakeDaemon) Run(text string) (*ipc.RunData, error) {
	f.runs = append(f.runs, text)
	return &ipc.RunData{Command: "volume 40", Result: "volume 40%"}, nil
}

func (f *fakeDaemon) Exec(name string) (*ipc.RunData, error) {
	if f.execErr != nil {
		return nil, f.execErr
	}
	f.execs = append(f.execs, name)
	return &ipc.RunData{Command: name}, nil
}

func (f *fakeDaemon) Undo() (*ipc.RunData, error) {
	return &ipc.RunData{Command: "undo", Result: "undone"}, nil
}

func (f *fakeDaemon) Monitors() (*ipc.MonitorsData, error) {
	return &ipc.MonitorsData{Monitors: f.monitors}, nil
}

func (f *fakeDaemon) SaveLayout(name string) (*ipc.LayoutResult, error) {
	f.layouts[name] = 3
	return &ipc.LayoutResult{Name: name, Windows: 3}, nil
}

func (f *fakeDaemon) RestoreLayout(name string) (*ipc.LayoutResult, error) {
	n, ok := f.layouts[name]
	if !ok {
		return nil, errors.New("daemon error: layout not found")
	}
	return &ipc.LayoutResult{Name: name, Windows: n}, nil
}

func (f *fakeDaemon) ListLayouts() (*ipc.LayoutsData, error) {
	data := &ipc.LayoutsData{}
	for name, n := range f.layouts {
		data.Layouts = append(data.Layouts, ipc.LayoutInfo{Name: name, Windows: n, SavedAt: time.Unix(0, 0)})
	}
	return data, nil
}

func (f *fakeDaemon) DeleteLayout(name string) error {
	delete(f.layouts, name)
	return nil
}

func TestRunTextForwards(t *testing.T) {
	fd := newFakeDaemon()
	s := NewServer(fd, "test", nil)

	_, out, err := s.handleRunText(context.Background(), nil, RunTextInput{Text: "  vol 40 "})
	if err != nil {
		t.Fatalf("handleRunText: %v", err)
	}
	if len(fd.runs) != 1 || fd.runs[0] != "vol 40" {
		t.Fatalf("unexpected runs %q", fd.runs)
	}
	if out.Result != "volume 40%" {
		t.Fatalf("unexpected output %+v", out)
	}

	if _, _, err := s.handleRunText(context.Background(), nil, RunTextInput{}); err == nil {
		t.Fatal("expected an error for empty text")
	}
}

func TestRunCommandError(t *testing.T) {
	fd := newFakeDaemon()
	fd.execErr = errors.New("daemon error: no active window")
	s := NewServer(fd, "test", nil)

	_, _, err := s.handleRunCommand(context.Background(), nil, RunCommandInput{Name: "tile_maximize"})
	if err == nil || !errors.Is(err, fd.execErr) {
		t.Fatalf("expected wrapped daemon error, got %v", err)
	}
}

func TestLayoutTools(t *testing.T) {
	fd := newFakeDaemon()
	s := NewServer(fd, "test", nil)
	ctx := context.Background()

	if _, out, err := s.handleSaveLayout(ctx, nil, LayoutInput{Name: "work"}); err != nil || out.Windows != 3 {
		t.Fatalf("save = %+v, %v", out, err)
	}
	_, list, err := s.handleListLayouts(ctx, nil, EmptyInput{})
	if err != nil || len(list.Layouts) != 1 || list.Layouts[0].Name != "work" {
		t.Fatalf("list = %+v, %v", list, err)
	}
	if _, _, err := s.handleDeleteLayout(ctx, nil, LayoutInput{Name: "work"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := s.handleRestoreLayout(ctx, nil, LayoutInput{Name: "work"}); err == nil {
		t.Fatal("expected restore of a deleted layout to fail")
	}
}

func TestListMonitors(t *testing.T) {
	fd := newFakeDaemon()
	fd.monitors = []ipc.MonitorInfo{{ID: 0, Name: "DP-1", Width: 2560, Height: 1440}}
	s := NewServer(fd, "test", nil)

	_, out, err := s.handleListMonitors(context.Background(), nil, EmptyInput{})
	if err != nil {
		t.Fatalf("handleListMonitors: %v", err)
	}
	if len(out.Monitors) != 1 || out.Monitors[0].Name != "DP-1" || out.Monitors[0].Width != 2560 {
		t.Fatalf("unexpected monitors %+v", out.Monitors)
	}
}

func TestSessionListsAndCallsTools(t *testing.T) {
	fd := newFakeDaemon()
	s := NewServer(fd, "test", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	serverSession, err := s.Connect(ctx, serverTransport)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer serverSession.Close()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"run_text", "run_command", "undo", "status", "list_monitors", "save_layout", "restore_layout", "list_layouts", "delete_layout"} {
		if !names[want] {
			t.Errorf("tool %s not registered", want)
		}
	}

	res, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "run_command",
		Arguments: map[string]any{"name": "tile_left_half"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool reported an error: %+v", res.Content)
	}
	if len(fd.execs) != 1 || fd.execs[0] != "tile_left_half" {
		t.Fatalf("unexpected execs %q", fd.execs)
	}
}
