package tiling

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/1broseidon/keyshell/internal/platform"
)

// ErrExcluded is returned when the target window matches an exclusion rule.
var ErrExcluded = errors.New("window is excluded from management")

// StaleWindowError reports that the target window vanished mid-operation.
type StaleWindowError struct {
	Window platform.WindowID
	Op     string
	Err    error
}

func (e *StaleWindowError) Error() string {
	return fmt.Sprintf("%s: window %d is gone", e.Op, e.Window)
}

func (e *StaleWindowError) Unwrap() error { return e.Err }

// Mode is the manager's view of a window.
type Mode int

const (
	Free Mode = iota
	Tiled
)

func (m Mode) String() string {
	if m == Tiled {
		return "tiled"
	}
	return "free"
}

// WindowState is what the manager knows about a window it has acted on.
type WindowState struct {
	ID        platform.WindowID
	Bounds    Rect
	Opacity   uint8
	MonitorID int
	Mode      Mode
	UndoDepth int
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	HistorySize     int
	Layout          Options
	ExcludedClasses []string
	ExcludedTitles  []string
}

// Manager applies placements to live windows and records undo history. Every
// method must be called from the owner thread.
type Manager struct {
	backend  platform.Backend
	topology *Topology
	geometry *History[Rect]
	opacity  *History[uint8]
	states   map[platform.WindowID]*WindowState
	layout   Options
	classes  map[string]struct{}
	titles   []string
	log      *zap.SugaredLogger
}

// NewManager creates a manager over backend. topology may be nil, in which
// case one is built on the backend.
func NewManager(backend platform.Backend, topology *Topology, opts ManagerOptions, log *zap.SugaredLogger) *Manager {
	if topology == nil {
		topology = NewTopology(backend)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	classes := make(map[string]struct{}, len(opts.ExcludedClasses))
	for _, c := range opts.ExcludedClasses {
		classes[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	titles := make([]string, 0, len(opts.ExcludedTitles))
	for _, t := range opts.ExcludedTitles {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			titles = append(titles, t)
		}
	}
	return &Manager{
		backend:  backend,
		topology: topology,
		geometry: NewHistory[Rect](opts.HistorySize),
		opacity:  NewHistory[uint8](opts.HistorySize),
		states:   make(map[platform.WindowID]*WindowState),
		layout:   opts.Layout,
		classes:  classes,
		titles:   titles,
		log:      log,
	}
}

// Topology returns the monitor cache the manager reads.
func (m *Manager) Topology() *Topology {
	return m.topology
}

// Active returns the foreground window, or ErrExcluded when it matches an
// exclusion rule.
func (m *Manager) Active() (platform.WindowID, error) {
	id, err := m.backend.ActiveWindow()
	if err != nil {
		return 0, fmt.Errorf("active window: %w", err)
	}
	win, err := m.backend.Window(id)
	if err != nil {
		return 0, m.stale(id, "active", err)
	}
	if m.excluded(win) {
		return 0, fmt.Errorf("%w: %q", ErrExcluded, win.AppID)
	}
	return id, nil
}

// Tile places the window according to mode on its current monitor.
func (m *Manager) Tile(id platform.WindowID, mode TileMode) error {
	return m.Place(id, mode)
}

// Grid places the window in a quadrant of its current monitor.
func (m *Manager) Grid(id platform.WindowID, q GridQuadrant) error {
	return m.Place(id, q)
}

// Place computes p on the window's monitor, applies it and records the prior
// rectangle. Every call is a distinct undo step even when nothing moves.
func (m *Manager) Place(id platform.WindowID, p Placement) error {
	current, err := m.bounds(id, "place")
	if err != nil {
		return err
	}
	mon, err := m.topology.MonitorFor(current)
	if err != nil {
		return fmt.Errorf("place: %w", err)
	}
	target := Compute(p, mon.WorkArea, m.layout)
	if err := m.apply(id, "place", current, target, mon.ID); err != nil {
		return err
	}
	m.log.Debugw("placed window", "window", id, "placement", p.String(), "monitor", mon.Name, "rect", target.String())
	return nil
}

// MoveTo applies an explicit rectangle, clamped to the monitor that holds it.
func (m *Manager) MoveTo(id platform.WindowID, target Rect) error {
	current, err := m.bounds(id, "move")
	if err != nil {
		return err
	}
	mon, err := m.topology.MonitorFor(target)
	if err != nil {
		return fmt.Errorf("move: %w", err)
	}
	return m.apply(id, "move", current, Clamp(target, mon.WorkArea), mon.ID)
}

// Undo reapplies the most recent recorded rectangle. An empty history is a
// no-op and reports false.
func (m *Manager) Undo(id platform.WindowID) (bool, error) {
	var applied Rect
	ok, err := m.geometry.PopApply(id, func(r Rect) error {
		applied = r
		return m.backend.MoveResize(id, toPlatform(r))
	})
	if err != nil {
		return true, m.stale(id, "undo", err)
	}
	if !ok {
		return false, nil
	}
	st := m.state(id)
	st.Bounds = applied
	if m.geometry.Len(id) == 0 {
		st.Mode = Free
	}
	m.log.Debugw("undo geometry", "window", id, "rect", applied.String(), "remaining", m.geometry.Len(id))
	return true, nil
}

// RestoreOriginal applies the oldest recorded rectangle and clears the
// history, returning the window to Free.
func (m *Manager) RestoreOriginal(id platform.WindowID) (bool, error) {
	var applied Rect
	ok, err := m.geometry.PopOldestApply(id, func(r Rect) error {
		applied = r
		return m.backend.MoveResize(id, toPlatform(r))
	})
	if err != nil {
		return true, m.stale(id, "restore", err)
	}
	if !ok {
		return false, nil
	}
	st := m.state(id)
	st.Bounds = applied
	st.Mode = Free
	return true, nil
}

// MoveToNextMonitor moves the window to the next monitor, keeping its
// position relative to the work-area. With one monitor it wraps to itself
// and nothing changes.
func (m *Manager) MoveToNextMonitor(id platform.WindowID) error {
	return m.moveMonitor(id, "next_monitor", m.topology.Next)
}

// MoveToPrevMonitor is MoveToNextMonitor in the other direction.
func (m *Manager) MoveToPrevMonitor(id platform.WindowID) error {
	return m.moveMonitor(id, "prev_monitor", m.topology.Prev)
}

func (m *Manager) moveMonitor(id platform.WindowID, op string, step func(Monitor) (Monitor, error)) error {
	current, err := m.bounds(id, op)
	if err != nil {
		return err
	}
	from, err := m.topology.MonitorFor(current)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	to, err := step(from)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if to.ID == from.ID {
		return nil
	}
	target := Translate(current, from.WorkArea, to.WorkArea)
	return m.apply(id, op, current, target, to.ID)
}

// SetTransparency records the previous level and applies level at once.
// Geometry history is untouched.
func (m *Manager) SetTransparency(id platform.WindowID, level uint8) error {
	prev, err := m.backend.Opacity(id)
	if err != nil {
		return m.stale(id, "transparency", err)
	}
	if err := m.backend.SetOpacity(id, level); err != nil {
		return m.stale(id, "transparency", err)
	}
	m.opacity.Push(id, prev)
	m.state(id).Opacity = level
	m.log.Debugw("transparency", "window", id, "from", prev, "to", level)
	return nil
}

// AdjustTransparency shifts the level by delta, clamped to 0-255.
func (m *Manager) AdjustTransparency(id platform.WindowID, delta int) error {
	cur, err := m.backend.Opacity(id)
	if err != nil {
		return m.stale(id, "transparency", err)
	}
	return m.SetTransparency(id, uint8(clampInt(int(cur)+delta, 0, 255)))
}

// UndoTransparency restores the previous transparency level.
func (m *Manager) UndoTransparency(id platform.WindowID) (bool, error) {
	var applied uint8
	ok, err := m.opacity.PopApply(id, func(level uint8) error {
		applied = level
		return m.backend.SetOpacity(id, level)
	})
	if err != nil {
		return true, m.stale(id, "undo transparency", err)
	}
	if ok {
		m.state(id).Opacity = applied
	}
	return ok, nil
}

// ToggleAlwaysOnTop flips the keep-above state and returns the new value.
func (m *Manager) ToggleAlwaysOnTop(id platform.WindowID) (bool, error) {
	on, err := m.backend.AlwaysOnTop(id)
	if err != nil {
		return false, m.stale(id, "always_on_top", err)
	}
	if err := m.backend.SetAlwaysOnTop(id, !on); err != nil {
		return on, m.stale(id, "always_on_top", err)
	}
	return !on, nil
}

// MinimizeAllExcept minimizes every listed window on the current desktop
// other than keep. Windows that vanish meanwhile are skipped.
func (m *Manager) MinimizeAllExcept(keep platform.WindowID) (int, error) {
	windows, err := m.backend.ListWindows()
	if err != nil {
		return 0, fmt.Errorf("list windows: %w", err)
	}
	count := 0
	for _, w := range windows {
		if w.ID == keep || m.excluded(w) {
			continue
		}
		if err := m.backend.Minimize(w.ID); err != nil {
			if errors.Is(err, platform.ErrWindowGone) {
				m.Forget(w.ID)
				continue
			}
			return count, fmt.Errorf("minimize %d: %w", w.ID, err)
		}
		count++
	}
	return count, nil
}

// TileAll arranges every managed window on the monitor holding anchor in an
// auto-sized grid. Each move is its own undo step.
func (m *Manager) TileAll(anchor platform.WindowID) (int, error) {
	anchorRect, err := m.bounds(anchor, "tile_all")
	if err != nil {
		return 0, err
	}
	mon, err := m.topology.MonitorFor(anchorRect)
	if err != nil {
		return 0, fmt.Errorf("tile_all: %w", err)
	}
	windows, err := m.backend.ListWindows()
	if err != nil {
		return 0, fmt.Errorf("list windows: %w", err)
	}

	var targets []platform.Window
	for _, w := range windows {
		if m.excluded(w) {
			continue
		}
		owner, err := m.topology.MonitorFor(fromPlatform(w.Bounds))
		if err != nil || owner.ID != mon.ID {
			continue
		}
		targets = append(targets, w)
	}

	positions := CalculatePositions(len(targets), mon.WorkArea, m.layout)
	moved := 0
	for i, w := range targets {
		err := m.apply(w.ID, "tile_all", fromPlatform(w.Bounds), positions[i], mon.ID)
		if err != nil {
			var stale *StaleWindowError
			if errors.As(err, &stale) {
				continue
			}
			return moved, err
		}
		moved++
	}
	m.log.Debugw("tiled all", "monitor", mon.Name, "windows", moved)
	return moved, nil
}

// State returns the recorded state for id.
func (m *Manager) State(id platform.WindowID) (WindowState, bool) {
	st, ok := m.states[id]
	if !ok {
		return WindowState{}, false
	}
	out := *st
	out.UndoDepth = m.geometry.Len(id)
	return out, true
}

// States returns every recorded window state.
func (m *Manager) States() []WindowState {
	out := make([]WindowState, 0, len(m.states))
	for id := range m.states {
		st, _ := m.State(id)
		out = append(out, st)
	}
	return out
}

// Forget drops all state for a window that has closed.
func (m *Manager) Forget(id platform.WindowID) {
	delete(m.states, id)
	m.geometry.Forget(id)
	m.opacity.Forget(id)
}

// Prune forgets every tracked window not present in live and reports how
// many were dropped.
func (m *Manager) Prune(live []platform.WindowID) int {
	alive := make(map[platform.WindowID]struct{}, len(live))
	for _, id := range live {
		alive[id] = struct{}{}
	}
	tracked := make(map[platform.WindowID]struct{})
	for id := range m.states {
		tracked[id] = struct{}{}
	}
	for _, id := range m.geometry.Windows() {
		tracked[id] = struct{}{}
	}
	for _, id := range m.opacity.Windows() {
		tracked[id] = struct{}{}
	}

	dropped := 0
	for id := range tracked {
		if _, ok := alive[id]; !ok {
			m.Forget(id)
			dropped++
		}
	}
	return dropped
}

func (m *Manager) apply(id platform.WindowID, op string, current, target Rect, monitorID int) error {
	if err := m.backend.MoveResize(id, toPlatform(target)); err != nil {
		return m.stale(id, op, err)
	}
	m.geometry.Push(id, current)
	st := m.state(id)
	st.Bounds = target
	st.MonitorID = monitorID
	st.Mode = Tiled
	return nil
}

func (m *Manager) bounds(id platform.WindowID, op string) (Rect, error) {
	win, err := m.backend.Window(id)
	if err != nil {
		return Rect{}, m.stale(id, op, err)
	}
	return fromPlatform(win.Bounds), nil
}

func (m *Manager) state(id platform.WindowID) *WindowState {
	st, ok := m.states[id]
	if !ok {
		st = &WindowState{ID: id, Opacity: platform.OpaqueLevel}
		m.states[id] = st
	}
	return st
}

// stale converts a vanished-window failure into StaleWindowError and drops
// the window's state; other errors pass through wrapped.
func (m *Manager) stale(id platform.WindowID, op string, err error) error {
	if errors.Is(err, platform.ErrWindowGone) {
		m.Forget(id)
		m.log.Debugw("window vanished", "window", id, "op", op)
		return &StaleWindowError{Window: id, Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Excluded reports whether w matches an exclusion rule.
func (m *Manager) Excluded(w platform.Window) bool {
	return m.excluded(w)
}

func (m *Manager) excluded(w platform.Window) bool {
	if _, ok := m.classes[strings.ToLower(w.AppID)]; ok && w.AppID != "" {
		return true
	}
	title := strings.ToLower(w.Title)
	for _, t := range m.titles {
		if strings.Contains(title, t) {
			return true
		}
	}
	return false
}

func fromPlatform(r platform.Rect) Rect {
	return Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

func toPlatform(r Rect) platform.Rect {
	return platform.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}
