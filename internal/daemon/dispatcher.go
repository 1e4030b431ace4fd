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
	"github.com/1broseidon/keyshell/internal/hotkeys"
	"github.com/1broseidon/keyshell/internal/ipc"
	"github.com/1broseidon/keyshell/internal/layoutstore"
	"github.com/1broseidon/keyshell/internal/platform"
	"github.com/1broseidon/keyshell/internal/tiling"
)

// BindingLister reports the live hotkey bindings.
type BindingLister interface {
	Bindings() []hotkeys.Binding
}

// DispatcherOptions wires a Dispatcher.
type DispatcherOptions struct {
	Backend  platform.Backend
	Manager  *tiling.Manager
	Router   *command.Router
	Bindings BindingLister
	Store    layoutstore.Store
	Collab   *collab.Set
	// Post hands an event back to the owner thread.
	Post func(Event) error
	// Stats reports bridge counters for STATUS.
	Stats func() bridge.Stats
	// Quit stops the owner loop. It is called on the owner thread.
	Quit    func()
	Version string
}

// Dispatcher resolves events into commands and executes them. Handle runs
// only on the owner thread; slow collaborator calls run as jobs on their
// own goroutines and report back with a JobDoneEvent.
type Dispatcher struct {
	backend  platform.Backend
	manager  *tiling.Manager
	router   *command.Router
	bindings BindingLister
	store    layoutstore.Store
	collab   *collab.Set
	syncer   *StateSynchronizer
	post     func(Event) error
	stats    func() bridge.Stats
	quit     func()
	version  string
	started  time.Time

	jobCtx    context.Context
	jobCancel context.CancelFunc
	jobs      sync.WaitGroup

	log *zap.SugaredLogger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(opts DispatcherOptions, log *zap.SugaredLogger) *Dispatcher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.Stats == nil {
		opts.Stats = func() bridge.Stats { return bridge.Stats{} }
	}
	if opts.Quit == nil {
		opts.Quit = func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		backend:   opts.Backend,
		manager:   opts.Manager,
		router:    opts.Router,
		bindings:  opts.Bindings,
		store:     opts.Store,
		collab:    opts.Collab,
		syncer:    NewStateSynchronizer(opts.Backend, opts.Manager, log),
		post:      opts.Post,
		stats:     opts.Stats,
		quit:      opts.Quit,
		version:   opts.Version,
		started:   time.Now(),
		jobCtx:    ctx,
		jobCancel: cancel,
		log:       log,
	}
}

// Handle processes one event. A panic inside a command is logged and
// turned into a failed outcome for whoever waits on the event; the owner
// loop keeps running.
func (d *Dispatcher) Handle(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorw("event handler panic recovered", "event", fmt.Sprintf("%T", ev), "panic", r)
			d.failWaiter(ev, fmt.Errorf("command panicked: %v", r))
		}
	}()

	switch e := ev.(type) {
	case TriggerEvent:
		d.handleTrigger(e.Trigger)
	case TextEvent:
		d.handleText(e.Text, e.Reply)
	case NamedEvent:
		d.handleNamed(e.Name, e.Reply)
	case RequestEvent:
		d.handleRequest(e)
	case DisplayChangedEvent:
		d.syncer.DisplaysChanged()
	case ReconcileEvent:
		d.syncer.Sync()
	case JobDoneEvent:
		d.finish(Outcome{Command: e.Command, Result: e.Result, Data: e.Data, Err: e.Err}, e.Reply)
	case LauncherClosedEvent:
		d.handleLauncherClosed(e)
	case QuitEvent:
		d.log.Info("quit requested")
		d.quit()
	default:
		d.log.Warnw("unknown event", "event", fmt.Sprintf("%T", ev))
	}
}

// failWaiter answers the caller attached to ev, if any. A reply that was
// already delivered makes the IPC send a no-op.
func (d *Dispatcher) failWaiter(ev Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorw("panic while reporting panic", "panic", r)
		}
	}()
	switch e := ev.(type) {
	case RequestEvent:
		resp := ipc.NewErrorResponse(err.Error())
		if e.Request != nil {
			resp.ID = e.Request.ID
		}
		select {
		case e.Reply <- resp:
		default:
		}
	case TextEvent:
		if e.Reply != nil {
			e.Reply(Outcome{Command: e.Text, Err: err})
		}
	case NamedEvent:
		if e.Reply != nil {
			e.Reply(Outcome{Command: e.Name, Err: err})
		}
	case JobDoneEvent:
		if e.Reply != nil {
			e.Reply(Outcome{Command: e.Command, Err: err})
		}
	}
}

// Wait cancels outstanding jobs and waits for their goroutines.
func (d *Dispatcher) Wait() {
	d.jobCancel()
	d.jobs.Wait()
}

func (d *Dispatcher) handleTrigger(t hotkeys.Trigger) {
	cmd, err := d.router.Resolve(command.HotkeyEvent{Binding: t.Binding})
	if err != nil {
		d.log.Warnw("unresolved hotkey", "combo", t.Combo.String(), "error", err)
		return
	}
	d.log.Debugw("hotkey", "combo", t.Combo.String(), "command", cmd.String(), "latency", time.Since(t.At))
	d.Execute(cmd, nil)
}

func (d *Dispatcher) handleText(text string, reply Reply) {
	cmd, err := d.router.Resolve(command.TextEvent{Text: text})
	if errors.Is(err, command.ErrNoMatch) {
		if text == "" {
			d.finish(Outcome{Command: "none"}, reply)
			return
		}
		cmd = command.SearchFor(text)
	} else if err != nil {
		d.finish(Outcome{Command: "run", Err: err}, reply)
		return
	}
	d.Execute(cmd, reply)
}

func (d *Dispatcher) handleNamed(name string, reply Reply) {
	cmd, err := d.router.Resolve(command.NamedEvent{Name: name})
	if err != nil {
		d.finish(Outcome{Command: name, Err: err}, reply)
		return
	}
	d.Execute(cmd, reply)
}

// Execute runs cmd. reply, when non-nil, receives the outcome on the owner
// thread once the command, or its background job, completes.
func (d *Dispatcher) Execute(cmd command.Command, reply Reply) {
	switch c := cmd.(type) {
	case command.WindowOp:
		result, data, err := d.executeWindow(c)
		d.finish(Outcome{Command: c.String(), Result: result, Data: data, Err: err}, reply)
	case command.LauncherOp:
		d.executeLauncher(c, reply)
	case command.ExternalOp:
		d.executeExternal(c, reply)
	default:
		d.finish(Outcome{Command: cmd.String(), Err: fmt.Errorf("unsupported command %T", cmd)}, reply)
	}
}

// finish delivers an outcome. Failures without a waiting caller become a
// notification cue.
func (d *Dispatcher) finish(out Outcome, reply Reply) {
	if out.Err != nil {
		if collab.IsCancelled(out.Err) || errors.Is(out.Err, context.Canceled) {
			d.log.Debugw("command cancelled", "command", out.Command)
		} else {
			d.log.Warnw("command failed", "command", out.Command, "error", out.Err)
			if reply == nil && d.collab != nil {
				d.collab.Notifier.Error(out.Command, out.Err)
			}
		}
	} else {
		d.log.Debugw("command done", "command", out.Command, "result", out.Result)
	}
	if reply != nil {
		reply(out)
	}
}

func (d *Dispatcher) executeWindow(op command.WindowOp) (string, interface{}, error) {
	switch op.Action {
	case command.ActionSaveLayout:
		res, err := d.SaveLayout(op.Name)
		return fmt.Sprintf("saved %d windows", res.Windows), res, err
	case command.ActionRestoreLayout:
		res, err := d.RestoreLayout(op.Name)
		return fmt.Sprintf("restored %d windows", res.Windows), res, err
	}

	id, err := d.manager.Active()
	if err != nil {
		return "", nil, err
	}

	switch op.Action {
	case command.ActionPlace:
		return "", nil, d.manager.Place(id, op.Placement)
	case command.ActionUndo:
		ok, err := d.manager.Undo(id)
		return undoResult(ok), nil, err
	case command.ActionUndoOpacity:
		ok, err := d.manager.UndoTransparency(id)
		return undoResult(ok), nil, err
	case command.ActionRestore:
		ok, err := d.manager.RestoreOriginal(id)
		return undoResult(ok), nil, err
	case command.ActionNextMonitor:
		return "", nil, d.manager.MoveToNextMonitor(id)
	case command.ActionPrevMonitor:
		return "", nil, d.manager.MoveToPrevMonitor(id)
	case command.ActionOpacityStep:
		return "", nil, d.manager.AdjustTransparency(id, op.Level)
	case command.ActionSetOpacity:
		return "", nil, d.manager.SetTransparency(id, uint8(op.Level))
	case command.ActionAlwaysOnTop:
		on, err := d.manager.ToggleAlwaysOnTop(id)
		if on {
			return "always on top", nil, err
		}
		return "normal stacking", nil, err
	case command.ActionMinimizeOthers:
		n, err := d.manager.MinimizeAllExcept(id)
		return fmt.Sprintf("minimized %d windows", n), nil, err
	case command.ActionTileAll:
		n, err := d.manager.TileAll(id)
		return fmt.Sprintf("tiled %d windows", n), nil, err
	}
	return "", nil, fmt.Errorf("unsupported window action %d", op.Action)
}

func undoResult(applied bool) string {
	if applied {
		return "undone"
	}
	return "nothing to undo"
}

func (d *Dispatcher) executeLauncher(op command.LauncherOp, reply Reply) {
	if d.collab == nil || d.collab.Launcher == nil {
		d.finish(Outcome{Command: op.String(), Err: fmt.Errorf("launcher unavailable")}, reply)
		return
	}
	launcher := d.collab.Launcher

	switch op.Action {
	case command.LauncherShow:
		d.spawn(func(ctx context.Context) {
			res, err := launcher.Show(ctx)
			d.postBack(LauncherClosedEvent{Result: res, Err: err})
		})
	case command.LauncherClipMode:
		entries := d.collab.Clipboard.Entries()
		d.offload(op.String(), nil, func(ctx context.Context) (string, interface{}, error) {
			choice, err := launcher.OpenClipMode(ctx, entries)
			if err != nil {
				return "", nil, err
			}
			return "copied", nil, d.collab.Clipboard.Copy(choice)
		})
	}
	// The prompt stays open after the request returns.
	d.finish(Outcome{Command: op.String(), Result: "opened"}, reply)
}

func (d *Dispatcher) handleLauncherClosed(e LauncherClosedEvent) {
	if e.Err != nil {
		d.finish(Outcome{Command: "launcher", Err: e.Err}, nil)
		return
	}
	if e.Result.Command != "" {
		d.handleNamed(e.Result.Command, nil)
		return
	}
	d.handleText(e.Result.Text, nil)
}

func (d *Dispatcher) executeExternal(op command.ExternalOp, reply Reply) {
	if d.collab == nil {
		d.finish(Outcome{Command: op.String(), Err: fmt.Errorf("collaborators unavailable")}, reply)
		return
	}
	c := d.collab
	name := op.String()

	switch op.Action {
	case command.ExternalCalculate:
		d.offload(name, reply, func(ctx context.Context) (string, interface{}, error) {
			if err := c.Clipboard.Copy(op.Arg); err != nil {
				d.log.Debugw("calculator result not copied", "error", err)
			}
			c.Notifier.Notify("= "+op.Arg, "copied to clipboard")
			return op.Arg, nil, nil
		})
	case command.ExternalKillPort:
		d.offload(name, reply, func(ctx context.Context) (string, interface{}, error) {
			pids, err := c.Processes.KillPort(ctx, int(op.Number))
			if err != nil {
				return "", nil, err
			}
			if len(pids) == 0 {
				return fmt.Sprintf("port %s is free", op.Arg), nil, nil
			}
			msg := fmt.Sprintf("port %s cleared (pids %v)", op.Arg, pids)
			c.Notifier.Notify("keyshell", msg)
			return msg, nil, nil
		})
	case command.ExternalKillProcess:
		d.offload(name, reply, func(ctx context.Context) (string, interface{}, error) {
			n, err := c.Processes.KillByName(ctx, op.Arg)
			return fmt.Sprintf("killed %d processes", n), nil, err
		})
	case command.ExternalProject:
		d.offload(name, reply, func(ctx context.Context) (string, interface{}, error) {
			dirs, err := c.Searcher.SearchFolders(ctx, op.Arg)
			if err != nil {
				return "", nil, err
			}
			dir, err := d.pick(ctx, "projects", dirs)
			if err != nil {
				return "", nil, err
			}
			return dir, nil, c.Opener.Project(c.ProjectCommand, dir)
		})
	case command.ExternalVolume:
		d.offload(name, reply, func(ctx context.Context) (string, interface{}, error) {
			return "volume " + op.Arg + "%", nil, c.Audio.SetVolume(ctx, int(op.Number))
		})
	case command.ExternalMute:
		d.offload(name, reply, func(ctx context.Context) (string, interface{}, error) {
			return "toggled", nil, c.Audio.ToggleMute(ctx)
		})
	case command.ExternalMicMute:
		d.offload(name, reply, func(ctx context.Context) (string, interface{}, error) {
			return "toggled", nil, c.Audio.ToggleMic(ctx)
		})
	case command.ExternalMuteApp:
		d.offload(name, reply, func(ctx context.Context) (string, interface{}, error) {
			n, err := c.Audio.MuteApp(ctx, op.Arg)
			return fmt.Sprintf("toggled %d streams", n), nil, err
		})
	case command.ExternalAudioDevice:
		d.offload(name, reply, func(ctx context.Context) (string, interface{}, error) {
			device, err := c.Audio.SetDevice(ctx, op.Arg)
			return "output " + device, nil, err
		})
	case command.ExternalMedia:
		d.offload(name, reply, func(ctx context.Context) (string, interface{}, error) {
			return op.Arg, nil, c.Audio.Media(ctx, op.Arg)
		})
	case command.ExternalLock:
		d.offload(name, reply, func(ctx context.Context) (string, interface{}, error) {
			return "locked", nil, c.Locker.Lock()
		})
	case command.ExternalYouTube:
		d.offload(name, reply, func(ctx context.Context) (string, interface{}, error) {
			return op.Arg, nil, c.Opener.YouTube(op.Arg)
		})
	case command.ExternalOCR:
		d.offload(name, reply, func(ctx context.Context) (string, interface{}, error) {
			text, err := c.OCR.Capture(ctx)
			if err != nil {
				return "", nil, err
			}
			if err := c.Clipboard.Copy(text); err != nil {
				return text, nil, err
			}
			c.Notifier.Notify("Text captured", "copied to clipboard")
			return text, nil, nil
		})
	case command.ExternalNote:
		d.offload(name, reply, func(ctx context.Context) (string, interface{}, error) {
			if op.Arg == "" {
				return c.Notes.Path(), nil, c.Opener.Open(c.Notes.Path())
			}
			return "saved", nil, c.Notes.Append(op.Arg)
		})
	case command.ExternalKeyword:
		d.offload(name, reply, func(ctx context.Context) (string, interface{}, error) {
			return d.runKeyword(ctx, *op.Keyword, op.Arg)
		})
	case command.ExternalSearch:
		d.offload(name, reply, func(ctx context.Context) (string, interface{}, error) {
			paths, err := c.Searcher.Search(ctx, op.Arg)
			if err != nil {
				return "", nil, err
			}
			path, err := d.pick(ctx, "files", paths)
			if err != nil {
				return "", nil, err
			}
			return path, nil, c.Opener.Open(path)
		})
	default:
		d.finish(Outcome{Command: name, Err: fmt.Errorf("unsupported external action %d", op.Action)}, reply)
	}
}

// runKeyword opens a custom keyword target. It runs as a job.
func (d *Dispatcher) runKeyword(ctx context.Context, k command.Keyword, query string) (string, interface{}, error) {
	c := d.collab
	target := k.Expand(query)
	switch k.Type {
	case command.KeywordCmd:
		out, err := c.Opener.Shell(ctx, target)
		return out, nil, err
	case command.KeywordNote:
		text := query
		if text == "" {
			text = target
		}
		return "saved", nil, c.Notes.Append(text)
	case command.KeywordCopy:
		return "copied", nil, c.Clipboard.Copy(target)
	default:
		return target, nil, c.Opener.Open(target)
	}
}

// pick lets the user choose among values through the launcher, or takes
// the first value when no launcher is available.
func (d *Dispatcher) pick(ctx context.Context, prompt string, values []string) (string, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("no %s found", prompt)
	}
	if d.collab.Launcher == nil {
		return values[0], nil
	}
	return d.collab.Launcher.Pick(ctx, prompt, values)
}

// offload runs fn as a job and routes its outcome back through the bridge.
func (d *Dispatcher) offload(name string, reply Reply, fn func(ctx context.Context) (string, interface{}, error)) {
	d.spawn(func(ctx context.Context) {
		var (
			result string
			data   interface{}
			err    error
		)
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%s panicked: %v", name, r)
				}
			}()
			result, data, err = fn(ctx)
		}()
		d.postBack(JobDoneEvent{Command: name, Result: result, Data: data, Err: err, Reply: reply})
	})
}

func (d *Dispatcher) spawn(fn func(ctx context.Context)) {
	d.jobs.Add(1)
	go func() {
		defer d.jobs.Done()
		fn(d.jobCtx)
	}()
}

func (d *Dispatcher) postBack(ev Event) {
	if d.post == nil {
		return
	}
	if err := d.post(ev); err != nil {
		d.log.Debugw("dropping job result", "event", fmt.Sprintf("%T", ev), "error", err)
	}
}
