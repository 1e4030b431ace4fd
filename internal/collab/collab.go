package collab

import (
	"fmt"

	"github.com/1broseidon/keyshell/internal/config"
	"github.com/1broseidon/keyshell/internal/palette"
	"go.uber.org/zap"
)

// Set bundles the collaborators the dispatcher uses.
type Set struct {
	Launcher       *Launcher
	Searcher       *Searcher
	Opener         *Opener
	Audio          *Audio
	Processes      *ProcessTools
	Notifier       *Notifier
	Locker         *Locker
	OCR            *OCR
	Notes          *Notes
	Clipboard      *ClipboardHistory
	ProjectCommand string
}

// Options wires a Set to non-default dependencies, mainly for tests.
type Options struct {
	Runner  Runner
	Palette palette.Backend
}

// NewSet builds collaborators from the effective config. A missing palette
// backend leaves the launcher nil; the dispatcher reports it on use.
func NewSet(cfg *config.Config, opts Options, log *zap.SugaredLogger) (*Set, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	tools := DefaultTools.Merge(cfg.Tools)

	notesPath, err := cfg.NotesPath()
	if err != nil {
		return nil, fmt.Errorf("notes path: %w", err)
	}

	s := &Set{
		Searcher:       NewSearcher(runner, cfg.Search.Command, cfg.Search.Limit),
		Opener:         NewOpener(runner, tools),
		Audio:          NewAudio(runner, tools, cfg.Launcher.AudioDevices),
		Processes:      NewProcessTools(),
		Notifier:       NewNotifier(runner, tools, log),
		Locker:         NewLocker(runner, tools),
		OCR:            NewOCR(runner, tools),
		Notes:          NewNotes(notesPath),
		Clipboard:      NewClipboardHistory(cfg.Clipboard.Size, log),
		ProjectCommand: cfg.Search.ProjectCommand,
	}

	backend := opts.Palette
	if backend == nil {
		backend, err = palette.NewBackend(cfg.Launcher.Backend)
		if err != nil {
			log.Warnw("launcher unavailable", "error", err)
		}
	}
	if backend != nil {
		s.Launcher = NewLauncher(backend, cfg.CommandKeywords(), cfg.Theme)
	}
	return s, nil
}
