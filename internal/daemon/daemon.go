// Package daemon runs the owner thread: it wires the hotkey registry, the
// window manager, the command router and the collaborators to one event
// bridge and serves the IPC socket.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/1broseidon/keyshell/internal/bridge"
	"github.com/1broseidon/keyshell/internal/collab"
	"github.com/1broseidon/keyshell/internal/command"
	"github.com/1broseidon/keyshell/internal/config"
	"github.com/1broseidon/keyshell/internal/hotkeys"
	"github.com/1broseidon/keyshell/internal/ipc"
	"github.com/1broseidon/keyshell/internal/layoutstore"
	"github.com/1broseidon/keyshell/internal/platform"
	"github.com/1broseidon/keyshell/internal/tiling"
)

// ErrNotRunning is returned by HandleIPC before Run or after shutdown.
var ErrNotRunning = errors.New("daemon is not running")

// Options configures a Daemon. Config, Backend and Source are required.
type Options struct {
	Config  *config.Config
	Backend platform.Backend
	Source  hotkeys.Source
	Store   layoutstore.Store
	// Collab defaults to collab.NewSet over Config.
	Collab *collab.Set
	// SocketPath enables the IPC server when set.
	SocketPath string
	Version    string
	// Systemd enables sd_notify readiness and watchdog messages.
	Systemd bool
	Logger  *zap.SugaredLogger
}

// Daemon is one running keyshell instance.
type Daemon struct {
	cfg        *config.Config
	backend    platform.Backend
	source     hotkeys.Source
	store      layoutstore.Store
	collab     *collab.Set
	socketPath string
	version    string
	systemd    bool
	log        *zap.SugaredLogger

	bridge     *bridge.Bridge[Event]
	dispatcher *Dispatcher
	registry   *hotkeys.Registry
	router     *command.Router
	server     *ipc.Server

	ready   chan struct{}
	running chan struct{}
	cancel  context.CancelFunc
}

// New validates opts and builds the collaborators.
func New(opts Options) (*Daemon, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("daemon: config is required")
	}
	if opts.Backend == nil {
		return nil, fmt.Errorf("daemon: backend is required")
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("daemon: hotkey source is required")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	set := opts.Collab
	if set == nil {
		var err error
		set, err = collab.NewSet(opts.Config, collab.Options{}, log.Named("collab"))
		if err != nil {
			return nil, fmt.Errorf("daemon: %w", err)
		}
	}
	return &Daemon{
		cfg:        opts.Config,
		backend:    opts.Backend,
		source:     opts.Source,
		store:      opts.Store,
		collab:     set,
		socketPath: opts.SocketPath,
		version:    opts.Version,
		systemd:    opts.Systemd,
		log:        log,
		ready:      make(chan struct{}),
		running:    make(chan struct{}),
	}, nil
}

// Ready is closed once hotkeys are armed and the IPC socket listens.
func (d *Daemon) Ready() <-chan struct{} {
	return d.ready
}

// Post queues an event for the owner thread.
func (d *Daemon) Post(ev Event) error {
	select {
	case <-d.running:
	default:
		return ErrNotRunning
	}
	return d.bridge.Post(ev)
}

// Run starts the daemon and blocks on the owner loop until ctx is cancelled
// or a QUIT arrives. It returns nil on a clean shutdown.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.cancel = cancel

	cfg := d.cfg
	d.bridge = bridge.New[Event](bridge.Options{
		MaxPending:  cfg.Bridge.MaxPending,
		LatencyWarn: time.Duration(cfg.Bridge.LatencyWarnMS) * time.Millisecond,
	}, d.log.Named("bridge"))

	topology := tiling.NewTopology(d.backend)
	manager := tiling.NewManager(d.backend, topology, tiling.ManagerOptions{
		HistorySize:     cfg.HistorySize,
		Layout:          cfg.LayoutOptions(),
		ExcludedClasses: cfg.ExcludedClasses,
		ExcludedTitles:  cfg.ExcludedTitles,
	}, d.log.Named("tiling"))
	d.router = command.NewRouter(cfg.CommandKeywords())

	d.registry = hotkeys.NewRegistry(d.source, func(t hotkeys.Trigger) error {
		return d.bridge.Post(TriggerEvent{Trigger: t})
	}, cfg.Policy(), d.log.Named("hotkeys"))

	d.dispatcher = NewDispatcher(DispatcherOptions{
		Backend:  d.backend,
		Manager:  manager,
		Router:   d.router,
		Bindings: d.registry,
		Store:    d.store,
		Collab:   d.collab,
		Post:     d.bridge.Post,
		Stats:    d.bridge.Stats,
		Quit:     cancel,
		Version:  d.version,
	}, d.log)
	close(d.running)

	d.registerHotkeys()

	if sw, ok := d.backend.(platform.ScreenWatcher); ok {
		err := sw.WatchScreenChanges(func() {
			_ = d.bridge.Post(DisplayChangedEvent{})
		})
		if err != nil {
			d.log.Warnw("display change notifications unavailable", "error", err)
		}
	}

	if err := d.registry.Start(); err != nil {
		return fmt.Errorf("start hotkeys: %w", err)
	}
	defer func() {
		if err := d.registry.Stop(); err != nil {
			d.log.Warnw("failed to release hotkeys", "error", err)
		}
	}()

	if d.socketPath != "" {
		d.server = ipc.NewServer(d.socketPath, d, d.log.Named("ipc"))
		if err := d.server.Start(); err != nil {
			return fmt.Errorf("start ipc server: %w", err)
		}
		defer d.server.Stop()
	}

	var wg sync.WaitGroup
	d.background(ctx, &wg)

	d.log.Infow("keyshell started",
		"bindings", len(d.registry.Bindings()),
		"socket", d.socketPath,
		"launcher", d.collab.Launcher != nil)
	close(d.ready)

	err := d.bridge.Run(ctx, d.dispatcher.Handle)

	d.log.Info("shutting down")
	if d.systemd {
		systemdStopping()
	}
	cancel()
	wg.Wait()
	d.dispatcher.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// background starts the helper goroutines. None of them touch owner state.
func (d *Daemon) background(ctx context.Context, wg *sync.WaitGroup) {
	reconciler := NewReconciler(time.Duration(d.cfg.ReconcileIntervalMS)*time.Millisecond, d.bridge.Post, d.log.Named("reconciler"))
	wg.Add(1)
	go func() {
		defer wg.Done()
		reconciler.Run(ctx)
	}()

	if d.cfg.Clipboard.Enabled && d.collab.Clipboard != nil {
		interval := time.Duration(d.cfg.Clipboard.PollMS) * time.Millisecond
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.collab.Clipboard.Poll(ctx, interval)
		}()
	}

	if d.systemd {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := systemdNotifyLoop(ctx, fmt.Sprintf("%d hotkeys armed", len(d.registry.Bindings())))
			if err != nil && !errors.Is(err, context.Canceled) {
				d.log.Warnw("systemd notify", "error", err)
			}
		}()
	}
}

// registerHotkeys binds every configured hotkey. A bad entry is logged and
// skipped; the rest stay usable.
func (d *Daemon) registerHotkeys() {
	for _, hk := range d.cfg.Hotkeys {
		combo, err := hotkeys.ParseCombo(hk.Keys)
		if err != nil {
			d.log.Warnw("skipping hotkey", "keys", hk.Keys, "error", err)
			continue
		}
		cmd, err := d.router.Parse(hk.Command)
		if err != nil {
			d.log.Warnw("skipping hotkey", "keys", hk.Keys, "command", hk.Command, "error", err)
			continue
		}
		id, err := d.registry.Register(combo, hk.Suppress)
		if err != nil {
			d.log.Warnw("skipping hotkey", "keys", hk.Keys, "error", err)
			continue
		}
		d.router.Bind(id, cmd)
	}
}

// HandleIPC hands req to the owner thread and waits for its response.
func (d *Daemon) HandleIPC(ctx context.Context, req *ipc.Request) *ipc.Response {
	reply := make(chan *ipc.Response, 1)
	if err := d.Post(RequestEvent{Request: req, Reply: reply}); err != nil {
		return ipc.NewErrorResponse(err.Error())
	}
	select {
	case resp := <-reply:
		return resp
	case <-d.bridge.Done():
		return buffered(reply, ErrNotRunning.Error())
	case <-ctx.Done():
		return buffered(reply, fmt.Sprintf("request timed out: %v", ctx.Err()))
	}
}

// buffered returns a reply that raced with shutdown, or an error response.
func buffered(reply <-chan *ipc.Response, msg string) *ipc.Response {
	select {
	case resp := <-reply:
		return resp
	default:
		return ipc.NewErrorResponse(msg)
	}
}
