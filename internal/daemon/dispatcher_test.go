package daemon

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	sddaemon "github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"github.com/1broseidon/keyshell/internal/collab"
	"github.com/1broseidon/keyshell/internal/command"
	"github.com/1broseidon/keyshell/internal/config"
	"github.com/1broseidon/keyshell/internal/ipc"
	"github.com/1broseidon/keyshell/internal/layoutstore"
	"github.com/1broseidon/keyshell/internal/layoutstore/memory"
	"github.com/1broseidon/keyshell/internal/palette"
	"github.com/1broseidon/keyshell/internal/platform"
	"github.com/1broseidon/keyshell/internal/platform/platformtest"
	"github.com/1broseidon/keyshell/internal/tiling"
)

var screen = platform.Rect{Width: 1920, Height: 1080}

type fakeRunner struct {
	mu      sync.Mutex
	calls   [][]string
	started [][]string
	outputs map[string]string
}

func (f *fakeRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	argv := append([]string{name}, args...)
	f.calls = append(f.calls, argv)
	return []byte(f.outputs[strings.Join(argv, " ")]), nil
}

func (f *fakeRunner) Start(name string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, append([]string{name}, args...))
	return nil
}

func (f *fakeRunner) startedWith(name string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]string
	for _, argv := range f.started {
		if argv[0] == name {
			out = append(out, argv)
		}
	}
	return out
}

type fakePalette struct {
	mu     sync.Mutex
	prompt string
	pick   int
}

func (f *fakePalette) Show(prompt string, items []palette.Item, message string) (palette.SelectResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pick >= len(items) {
		return palette.SelectResult{}, palette.ErrCancelled
	}
	return palette.SelectResult{Item: items[f.pick]}, nil
}

func (f *fakePalette) Prompt(prompt string, suggestions []palette.Item, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prompt == "" {
		return "", palette.ErrCancelled
	}
	return f.prompt, nil
}

func (f *fakePalette) Capabilities() palette.Capabilities {
	return palette.Capabilities{}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.NotesFile = filepath.Join(t.TempDir(), "notes.txt")
	cfg.Clipboard.Enabled = false
	cfg.Search.Command = "find-files {query}"
	cfg.Tools = map[string]string{
		"open":   "opener {target}",
		"notify": "notifier {title} {body}",
		"volume": "vol-tool {level}",
	}
	return cfg
}

type harness struct {
	d       *Dispatcher
	backend *platformtest.Backend
	runner  *fakeRunner
	palette *fakePalette
	events  chan Event
	quit    bool
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	h := &harness{
		backend: platformtest.New(platformtest.Monitor(0, screen)),
		runner:  &fakeRunner{outputs: map[string]string{}},
		palette: &fakePalette{},
		events:  make(chan Event, 16),
	}
	set, err := collab.NewSet(cfg, collab.Options{Runner: h.runner, Palette: h.palette}, nil)
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	manager := tiling.NewManager(h.backend, nil, tiling.ManagerOptions{
		HistorySize:     cfg.HistorySize,
		Layout:          cfg.LayoutOptions(),
		ExcludedClasses: cfg.ExcludedClasses,
	}, nil)
	h.d = NewDispatcher(DispatcherOptions{
		Backend: h.backend,
		Manager: manager,
		Router:  command.NewRouter(cfg.CommandKeywords()),
		Store:   memory.NewLayoutStore(),
		Collab:  set,
		Post: func(ev Event) error {
			h.events <- ev
			return nil
		},
		Quit:    func() { h.quit = true },
		Version: "test",
	}, nil)
	t.Cleanup(h.d.Wait)
	return h
}

// next handles the next event a job posted back.
func (h *harness) next(t *testing.T) {
	t.Helper()
	select {
	case ev := <-h.events:
		h.d.Handle(ev)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a job result")
	}
}

// text runs launcher text through the dispatcher and returns its outcome.
func (h *harness) text(t *testing.T, text string) Outcome {
	t.Helper()
	var out *Outcome
	h.d.Handle(TextEvent{Text: text, Reply: func(o Outcome) { out = &o }})
	for out == nil {
		h.next(t)
	}
	return *out
}

// request answers one IPC request on the owner thread.
func (h *harness) request(t *testing.T, cmd ipc.CommandType, payload interface{}) *ipc.Response {
	t.Helper()
	req, err := ipc.NewRequest(cmd, payload)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.ID = "req-1"
	reply := make(chan *ipc.Response, 1)
	h.d.Handle(RequestEvent{Request: req, Reply: reply})
	for {
		select {
		case resp := <-reply:
			if resp.ID != "req-1" {
				t.Fatalf("response id = %q", resp.ID)
			}
			return resp
		default:
			h.next(t)
		}
	}
}

func TestDispatcher_TileLeftHalfThenUndo(t *testing.T) {
	h := newHarness(t, testConfig(t))
	original := platform.Rect{X: 200, Y: 150, Width: 800, Height: 600}
	h.backend.AddWindow(platform.Window{ID: 1, AppID: "editor", Title: "notes", Bounds: original})

	resp := h.request(t, ipc.CommandExec, ipc.ExecPayload{Name: "tile_left_half"})
	if resp.Status != ipc.StatusOK {
		t.Fatalf("exec failed: %s", resp.Error)
	}
	got, _ := h.backend.Bounds(1)
	if got != (platform.Rect{X: 0, Y: 0, Width: 960, Height: 1080}) {
		t.Fatalf("tiled bounds = %+v", got)
	}

	resp = h.request(t, ipc.CommandUndo, nil)
	if resp.Status != ipc.StatusOK {
		t.Fatalf("undo failed: %s", resp.Error)
	}
	if got, _ := h.backend.Bounds(1); got != original {
		t.Fatalf("undo restored %+v, want %+v", got, original)
	}
}

func TestDispatcher_WindowCommandWithoutActiveWindow(t *testing.T) {
	h := newHarness(t, testConfig(t))
	resp := h.request(t, ipc.CommandExec, ipc.ExecPayload{Name: "tile_maximize"})
	if resp.Status != ipc.StatusError {
		t.Fatal("expected an error without an active window")
	}
}

func TestDispatcher_UnknownExec(t *testing.T) {
	h := newHarness(t, testConfig(t))
	resp := h.request(t, ipc.CommandExec, ipc.ExecPayload{Name: "does_not_exist"})
	if resp.Status != ipc.StatusError {
		t.Fatal("expected an error for an unknown command")
	}
}

func TestDispatcher_VolumeRunsAsJob(t *testing.T) {
	h := newHarness(t, testConfig(t))
	out := h.text(t, "vol 40")
	if out.Err != nil {
		t.Fatalf("vol: %v", out.Err)
	}
	if out.Result != "volume 40%" {
		t.Fatalf("result = %q", out.Result)
	}
	h.runner.mu.Lock()
	calls := h.runner.calls
	h.runner.mu.Unlock()
	if len(calls) != 1 || !reflect.DeepEqual(calls[0], []string{"vol-tool", "40"}) {
		t.Fatalf("unexpected calls %q", calls)
	}
}

func TestDispatcher_CalculatorResult(t *testing.T) {
	h := newHarness(t, testConfig(t))
	out := h.text(t, "2+3*4")
	if out.Err != nil {
		t.Fatalf("calc: %v", out.Err)
	}
	if out.Result != "14" {
		t.Fatalf("result = %q", out.Result)
	}
}

func TestDispatcher_UnmatchedTextSearches(t *testing.T) {
	h := newHarness(t, testConfig(t))
	h.runner.outputs["find-files quarterly report"] = "/home/u/quarterly.pdf\n/home/u/report.txt\n"
	h.palette.pick = 1

	out := h.text(t, "quarterly report")
	if out.Err != nil {
		t.Fatalf("search: %v", out.Err)
	}
	if out.Result != "/home/u/report.txt" {
		t.Fatalf("result = %q", out.Result)
	}
	opened := h.runner.startedWith("opener")
	if len(opened) != 1 || opened[0][1] != "/home/u/report.txt" {
		t.Fatalf("unexpected open calls %q", opened)
	}
}

func TestDispatcher_EmptyTextIsNoop(t *testing.T) {
	h := newHarness(t, testConfig(t))
	out := h.text(t, "")
	if out.Err != nil || out.Command != "none" {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestDispatcher_FailedHotkeyJobNotifies(t *testing.T) {
	h := newHarness(t, testConfig(t))
	// Empty history makes clip mode fail.
	h.d.Execute(command.LauncherOp{Action: command.LauncherClipMode}, nil)
	h.next(t)

	if got := h.runner.startedWith("notifier"); len(got) != 1 {
		t.Fatalf("expected one error notification, got %q", got)
	}
}

func TestDispatcher_LauncherTextIsRouted(t *testing.T) {
	h := newHarness(t, testConfig(t))
	h.palette.prompt = "vol 15"

	h.d.Execute(command.LauncherOp{Action: command.LauncherShow}, nil)
	h.next(t) // launcher closed
	h.next(t) // volume job

	h.runner.mu.Lock()
	defer h.runner.mu.Unlock()
	if len(h.runner.calls) != 1 || !reflect.DeepEqual(h.runner.calls[0], []string{"vol-tool", "15"}) {
		t.Fatalf("unexpected calls %q", h.runner.calls)
	}
}

func TestDispatcher_LauncherCancelIsQuiet(t *testing.T) {
	h := newHarness(t, testConfig(t))

	h.d.Execute(command.LauncherOp{Action: command.LauncherShow}, nil)
	h.next(t)

	if got := h.runner.startedWith("notifier"); len(got) != 0 {
		t.Fatalf("cancel should not notify, got %q", got)
	}
}

func TestDispatcher_LayoutSaveRestore(t *testing.T) {
	h := newHarness(t, testConfig(t))
	editor := platform.Rect{X: 10, Y: 10, Width: 900, Height: 700}
	term := platform.Rect{X: 960, Y: 0, Width: 960, Height: 1080}
	h.backend.AddWindow(platform.Window{ID: 1, AppID: "editor", Title: "main.go", Bounds: editor})
	h.backend.AddWindow(platform.Window{ID: 2, AppID: "term", Title: "shell", Bounds: term})

	resp := h.request(t, ipc.CommandLayoutSave, ipc.LayoutPayload{Name: "coding"})
	if resp.Status != ipc.StatusOK {
		t.Fatalf("save failed: %s", resp.Error)
	}

	h.backend.SetActive(1)
	h.request(t, ipc.CommandExec, ipc.ExecPayload{Name: "tile_maximize"})
	h.backend.SetActive(2)
	h.request(t, ipc.CommandExec, ipc.ExecPayload{Name: "tile_left_half"})

	resp = h.request(t, ipc.CommandLayoutRestore, ipc.LayoutPayload{Name: "coding"})
	if resp.Status != ipc.StatusOK {
		t.Fatalf("restore failed: %s", resp.Error)
	}
	if got, _ := h.backend.Bounds(1); got != editor {
		t.Fatalf("editor at %+v, want %+v", got, editor)
	}
	if got, _ := h.backend.Bounds(2); got != term {
		t.Fatalf("term at %+v, want %+v", got, term)
	}

	list, err := h.d.ListLayouts()
	if err != nil {
		t.Fatalf("ListLayouts: %v", err)
	}
	if len(list.Layouts) != 1 || list.Layouts[0].Windows != 2 {
		t.Fatalf("unexpected layouts %+v", list.Layouts)
	}

	resp = h.request(t, ipc.CommandLayoutDelete, ipc.LayoutPayload{Name: "coding"})
	if resp.Status != ipc.StatusOK {
		t.Fatalf("delete failed: %s", resp.Error)
	}
	resp = h.request(t, ipc.CommandLayoutRestore, ipc.LayoutPayload{Name: "coding"})
	if resp.Status != ipc.StatusError {
		t.Fatal("restoring a deleted layout should fail")
	}
}

func TestDispatcher_SaveLayoutSkipsExcluded(t *testing.T) {
	cfg := testConfig(t)
	cfg.ExcludedClasses = []string{"panel"}
	h := newHarness(t, cfg)
	h.backend.AddWindow(platform.Window{ID: 1, AppID: "panel", Title: "bar", Bounds: platform.Rect{Width: 1920, Height: 30}})
	h.backend.AddWindow(platform.Window{ID: 2, AppID: "term", Title: "shell", Bounds: platform.Rect{Width: 400, Height: 300}})

	res, err := h.d.SaveLayout("x")
	if err != nil {
		t.Fatalf("SaveLayout: %v", err)
	}
	if res.Windows != 1 {
		t.Fatalf("saved %d windows, want 1", res.Windows)
	}
}

func TestDispatcher_ReconcileDropsClosedWindows(t *testing.T) {
	h := newHarness(t, testConfig(t))
	h.backend.AddWindow(platform.Window{ID: 1, AppID: "a", Bounds: platform.Rect{Width: 400, Height: 300}})
	h.request(t, ipc.CommandExec, ipc.ExecPayload{Name: "tile_left_half"})
	if n := len(h.d.manager.States()); n != 1 {
		t.Fatalf("tracked %d windows, want 1", n)
	}

	h.backend.CloseWindow(1)
	h.d.Handle(ReconcileEvent{})
	if n := len(h.d.manager.States()); n != 0 {
		t.Fatalf("tracked %d windows after close, want 0", n)
	}
}

func TestDispatcher_StatusAndMonitors(t *testing.T) {
	h := newHarness(t, testConfig(t))
	resp := h.request(t, ipc.CommandStatus, nil)
	if resp.Status != ipc.StatusOK {
		t.Fatalf("status failed: %s", resp.Error)
	}
	st := h.d.Status()
	if st.Version != "test" || st.Monitors != 1 {
		t.Fatalf("unexpected status %+v", st)
	}

	mons, err := h.d.Monitors()
	if err != nil {
		t.Fatalf("Monitors: %v", err)
	}
	if len(mons.Monitors) != 1 || mons.Monitors[0].Width != 1920 {
		t.Fatalf("unexpected monitors %+v", mons.Monitors)
	}
}

func TestDispatcher_QuitRepliesFirst(t *testing.T) {
	h := newHarness(t, testConfig(t))
	resp := h.request(t, ipc.CommandQuit, nil)
	if resp.Status != ipc.StatusOK {
		t.Fatalf("quit failed: %s", resp.Error)
	}
	if !h.quit {
		t.Fatal("quit was not called")
	}
}

func TestDispatcher_UnknownRequest(t *testing.T) {
	h := newHarness(t, testConfig(t))
	resp := h.request(t, ipc.CommandType("BOGUS"), nil)
	if resp.Status != ipc.StatusError || !strings.Contains(resp.Error, "unknown command") {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestDispatcher_OffloadRecoversPanic(t *testing.T) {
	h := newHarness(t, testConfig(t))
	var out Outcome
	h.d.offload("boom", func(o Outcome) { out = o }, func(ctx context.Context) (string, interface{}, error) {
		panic("collaborator exploded")
	})
	h.next(t)
	if out.Err == nil || !strings.Contains(out.Err.Error(), "panicked") {
		t.Fatalf("expected a panic error, got %v", out.Err)
	}
}

type faultyBackend struct {
	*platformtest.Backend
}

func (faultyBackend) MoveResize(platform.WindowID, platform.Rect) error {
	panic("driver fault")
}

func TestDispatcher_PanicStillReplies(t *testing.T) {
	h := newHarness(t, testConfig(t))
	h.backend.AddWindow(platform.Window{ID: 1, AppID: "editor", Bounds: platform.Rect{Width: 400, Height: 300}})
	backend := faultyBackend{Backend: h.backend}
	h.d.backend = backend
	h.d.manager = tiling.NewManager(backend, nil, tiling.ManagerOptions{}, nil)

	resp := h.request(t, ipc.CommandExec, ipc.ExecPayload{Name: "tile_left_half"})
	if resp.Status != ipc.StatusError || !strings.Contains(resp.Error, "panicked") {
		t.Fatalf("unexpected response %+v", resp)
	}

	var out *Outcome
	h.d.Handle(NamedEvent{Name: "tile_right_half", Reply: func(o Outcome) { out = &o }})
	if out == nil || out.Err == nil || !strings.Contains(out.Err.Error(), "driver fault") {
		t.Fatalf("named event outcome = %+v", out)
	}
}

func TestMatchWindows(t *testing.T) {
	saved := []layoutstore.Window{
		{Class: "term", Title: "build"},
		{Class: "term", Title: "logs"},
		{Class: "editor", Title: "gone.go"},
		{Class: "missing", Title: "x"},
	}
	open := []platform.Window{
		{ID: 1, AppID: "term", Title: "logs"},
		{ID: 2, AppID: "term", Title: "other"},
		{ID: 3, AppID: "Editor", Title: "main.go"},
	}

	got := map[string]platform.WindowID{}
	for _, m := range matchWindows(saved, open) {
		got[m.saved.Title] = m.window
	}
	want := map[string]platform.WindowID{"logs": 1, "build": 2, "gone.go": 3}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("matchWindows = %v, want %v", got, want)
	}
}

func TestReconcilerPostsEvents(t *testing.T) {
	events := make(chan Event, 4)
	r := NewReconciler(5*time.Millisecond, func(ev Event) error {
		select {
		case events <- ev:
		default:
		}
		return nil
	}, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	select {
	case ev := <-events:
		if _, ok := ev.(ReconcileEvent); !ok {
			t.Fatalf("unexpected event %T", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reconcile event")
	}
	cancel()
	<-done
}

func restoreSystemd() {
	sdNotify = sddaemon.SdNotify
	sdWatchdogEnabled = sddaemon.SdWatchdogEnabled
}

func TestSystemdNotifyLoopOutsideSystemd(t *testing.T) {
	var sent []string
	sdNotify = func(unset bool, state string) (bool, error) {
		sent = append(sent, state)
		return false, nil
	}
	defer restoreSystemd()

	if err := systemdNotifyLoop(context.Background(), "ready"); err != nil {
		t.Fatalf("systemdNotifyLoop: %v", err)
	}
	if len(sent) != 1 {
		t.Fatalf("expected only READY, sent %q", sent)
	}
}

func TestSystemdNotifyLoopFeedsWatchdog(t *testing.T) {
	var (
		mu   sync.Mutex
		sent []string
	)
	sdNotify = func(unset bool, state string) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, state)
		return true, nil
	}
	sdWatchdogEnabled = func(unset bool) (time.Duration, error) {
		return 10 * time.Millisecond, nil
	}
	defer restoreSystemd()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := systemdNotifyLoop(ctx, "running")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(sent) < 3 || sent[0] != "READY=1" || sent[1] != "STATUS=running" || sent[2] != "WATCHDOG=1" {
		t.Fatalf("unexpected notifications %q", sent)
	}
}
