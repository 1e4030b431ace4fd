package daemon

import (
	"go.uber.org/zap"

	"github.com/1broseidon/keyshell/internal/platform"
	"github.com/1broseidon/keyshell/internal/tiling"
)

// StateSynchronizer brings per-window state and the monitor topology back
// in line with the window system. It runs on the owner thread.
type StateSynchronizer struct {
	backend platform.Backend
	manager *tiling.Manager
	log     *zap.SugaredLogger
}

// NewStateSynchronizer creates a new state synchronizer.
func NewStateSynchronizer(backend platform.Backend, manager *tiling.Manager, log *zap.SugaredLogger) *StateSynchronizer {
	return &StateSynchronizer{backend: backend, manager: manager, log: log}
}

// SyncResult reports what a pass changed.
type SyncResult struct {
	Pruned          int
	MonitorsChanged bool
}

// Sync forgets windows that have closed and re-reads the displays.
func (s *StateSynchronizer) Sync() SyncResult {
	var res SyncResult

	windows, err := s.backend.ListWindows()
	if err != nil {
		s.log.Warnw("sync: failed to list windows", "error", err)
		return res
	}
	live := make([]platform.WindowID, 0, len(windows))
	for _, w := range windows {
		live = append(live, w.ID)
	}
	// Minimized windows may be missing from the list but still exist.
	for _, st := range s.manager.States() {
		if _, err := s.backend.Window(st.ID); err == nil {
			live = append(live, st.ID)
		}
	}
	if res.Pruned = s.manager.Prune(live); res.Pruned > 0 {
		s.log.Debugw("sync: dropped closed windows", "count", res.Pruned)
	}

	changed, err := s.manager.Topology().Revalidate()
	if err != nil {
		s.log.Warnw("sync: failed to read displays", "error", err)
		return res
	}
	if changed {
		res.MonitorsChanged = true
		s.log.Infow("sync: monitor layout changed")
	}
	return res
}

// DisplaysChanged drops the cached topology after a screen change
// notification.
func (s *StateSynchronizer) DisplaysChanged() {
	s.manager.Topology().Invalidate()
	s.log.Infow("display configuration changed")
}
