package hotkeys

import (
	"errors"
	"sync"
)

// ErrSourceStopped is returned when a source is used after Stop.
var ErrSourceStopped = errors.New("hotkey source stopped")

// MatchFunc is invoked on the capture context for every completed key
// combination. It reports whether a binding matched and whether the physical
// event must be swallowed. Implementations must not block.
type MatchFunc func(c Combo) (matched, suppress bool)

// Source is the operating system input layer. A Source installs exactly one
// system-wide listener in Start and translates raw key events into Combos.
type Source interface {
	// Reset removes input hooks or grabs left by a previous instance.
	Reset() error
	// Start installs the listener. match runs on the capture context.
	Start(match MatchFunc) error
	// Watch asks the input layer to deliver c. Watching c again replaces
	// its suppress flag; when that fails the previous watch stays active.
	// Sources that observe every key may treat this as a no-op.
	Watch(c Combo, suppress bool) error
	// Unwatch stops delivering c.
	Unwatch(c Combo) error
	// Stop removes the listener. It is idempotent.
	Stop() error
}

// ManualSource is a Source driven by Press. It backs headless mode and tests.
type ManualSource struct {
	mu      sync.Mutex
	match   MatchFunc
	watched map[Combo]bool
	resets  int
	started bool
	stopped bool
}

var _ Source = (*ManualSource)(nil)

// NewManualSource returns an idle manual source.
func NewManualSource() *ManualSource {
	return &ManualSource{watched: make(map[Combo]bool)}
}

func (s *ManualSource) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
	s.watched = make(map[Combo]bool)
	return nil
}

func (s *ManualSource) Start(match MatchFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrSourceStopped
	}
	s.match = match
	s.started = true
	return nil
}

func (s *ManualSource) Watch(c Combo, suppress bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watched[c] = suppress
	return nil
}

func (s *ManualSource) Unwatch(c Combo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watched, c)
	return nil
}

func (s *ManualSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.match = nil
	return nil
}

// Press simulates a completed key combination. It reports whether a binding
// matched and whether the event would have been swallowed.
func (s *ManualSource) Press(c Combo) (matched, suppress bool) {
	s.mu.Lock()
	match := s.match
	s.mu.Unlock()
	if match == nil {
		return false, false
	}
	return match(c)
}

// Watched reports the combos currently requested, with their suppress flag.
func (s *ManualSource) Watched() map[Combo]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Combo]bool, len(s.watched))
	for c, sup := range s.watched {
		out[c] = sup
	}
	return out
}

// Started reports whether Start has been called and Stop has not.
func (s *ManualSource) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped
}

// Resets counts Reset calls.
func (s *ManualSource) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}
