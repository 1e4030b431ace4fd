package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/1broseidon/keyshell/internal/config"
	"github.com/1broseidon/keyshell/internal/crashlog"
	"github.com/1broseidon/keyshell/internal/daemon"
	"github.com/1broseidon/keyshell/internal/hotkeys"
	"github.com/1broseidon/keyshell/internal/layoutstore"
	"github.com/1broseidon/keyshell/internal/layoutstore/memory"
	"github.com/1broseidon/keyshell/internal/layoutstore/sqlite"
	"github.com/1broseidon/keyshell/internal/platform"
	"github.com/1broseidon/keyshell/internal/runtimepath"
	"github.com/1broseidon/keyshell/internal/singleton"
)

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("config", "", "Extra config file layered over ~/.config/keyshell/config.yaml")
	headless := fs.Bool("headless", false, "Do not capture hotkeys; accept commands over IPC only")
	debug := fs.Bool("debug", false, "Log at debug level")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: keyshell daemon [--config PATH] [--headless] [--debug]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run the hotkey daemon in the foreground.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	crash := crashlog.Default()
	defer crash.Recover("daemon")

	res, loadErr := config.LoadOrDefault(*path)
	cfg := res.Config
	if *debug {
		cfg.Log.Level = "debug"
	}
	log, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer log.Sync()
	if loadErr != nil {
		log.Warnw("using built-in defaults", "error", loadErr)
	}

	if err := serve(cfg, *headless, hostEnv(), log); err != nil {
		if report, rerr := crash.Report("daemon", err); rerr == nil {
			log.Errorw("daemon failed", "error", err, "crash_log", report)
		} else {
			log.Errorw("daemon failed", "error", err)
		}
		return 1
	}
	return 0
}

// daemonEnv holds the constructors serve needs from the host session.
type daemonEnv struct {
	lockPath   func() (string, error)
	socketPath func() (string, error)
	newBackend func() (platform.Backend, error)
	newSource  func(backend platform.Backend, headless bool) (hotkeys.Source, error)
}

func hostEnv() daemonEnv {
	return daemonEnv{
		lockPath:   runtimepath.LockPath,
		socketPath: runtimepath.SocketPath,
		newBackend: platform.NewDefault,
		newSource: func(backend platform.Backend, headless bool) (hotkeys.Source, error) {
			if headless {
				return hotkeys.NewManualSource(), nil
			}
			return hotkeys.NewSystemSource(backend)
		},
	}
}

// serve runs the daemon until a signal arrives. A second instance returns
// nil before touching the display or the input layer.
func serve(cfg *config.Config, headless bool, env daemonEnv, log *zap.SugaredLogger) error {
	lockPath, err := env.lockPath()
	if err != nil {
		return fmt.Errorf("resolve lock path: %w", err)
	}
	guard, err := singleton.Acquire(lockPath)
	if errors.Is(err, singleton.ErrAlreadyRunning) {
		log.Info("keyshell is already running")
		return nil
	}
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	defer guard.Release()

	backend, err := env.newBackend()
	if err != nil {
		return fmt.Errorf("connect to display: %w", err)
	}
	if d, ok := backend.(interface{ Disconnect() }); ok {
		defer d.Disconnect()
	}

	source, err := env.newSource(backend, headless)
	if err != nil {
		return fmt.Errorf("hotkey source: %w", err)
	}

	store := openLayoutStore(cfg, log)
	defer store.Close()

	socketPath, err := env.socketPath()
	if err != nil {
		return fmt.Errorf("resolve socket path: %w", err)
	}

	d, err := daemon.New(daemon.Options{
		Config:     cfg,
		Backend:    backend,
		Source:     source,
		Store:      store,
		SocketPath: socketPath,
		Version:    version,
		Systemd:    true,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return d.Run(ctx)
}

// openLayoutStore opens the sqlite store, falling back to memory so the
// daemon still starts with an unwritable data dir.
func openLayoutStore(cfg *config.Config, log *zap.SugaredLogger) layoutstore.Store {
	dbPath, err := cfg.LayoutsDBPath()
	if err == nil {
		var store *sqlite.LayoutStore
		store, err = sqlite.NewLayoutStore(dbPath, log.Named("layouts"))
		if err == nil {
			return store
		}
	}
	log.Warnw("saved layouts will not persist", "error", err)
	return memory.NewLayoutStore()
}

func newLogger(cfg config.LogConfig) (*zap.SugaredLogger, error) {
	loggerConfig := zap.NewDevelopmentConfig()
	if cfg.Format == "json" {
		loggerConfig = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	loggerConfig.Level = zap.NewAtomicLevelAt(level)
	loggerConfig.OutputPaths = []string{"stderr"}
	if cfg.File != "" {
		loggerConfig.OutputPaths = append(loggerConfig.OutputPaths, cfg.File)
	}
	loggerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger.Sugar(), nil
}
