package hotkeys

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BindingID identifies one registration. IDs are never reused, so a queued
// trigger for a replaced binding still resolves to the command it was
// registered with.
type BindingID uint64

// Binding is an active combination.
type Binding struct {
	ID       BindingID
	Combo    Combo
	Suppress bool
}

// Trigger is emitted on the capture context when a binding matches.
type Trigger struct {
	Binding BindingID
	Combo   Combo
	At      time.Time
}

// Policy decides what Register does with an already bound combination.
type Policy int

const (
	// PolicyOverwrite replaces the existing binding and logs a warning.
	PolicyOverwrite Policy = iota
	// PolicyReject fails with DuplicateBindingError.
	PolicyReject
)

// ParsePolicy maps "overwrite" or "reject" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overwrite":
		return PolicyOverwrite, nil
	case "reject":
		return PolicyReject, nil
	}
	return 0, fmt.Errorf("unknown duplicate policy %q (expected overwrite or reject)", s)
}

// DuplicateBindingError reports a registration for a combination that is
// already bound.
type DuplicateBindingError struct {
	Combo    Combo
	Existing BindingID
}

func (e *DuplicateBindingError) Error() string {
	return fmt.Sprintf("key combination %s is already bound (binding %d)", e.Combo, e.Existing)
}

// TriggerFunc receives matches on the capture context. It must not block or
// perform I/O; returning an error only produces a logged diagnostic.
type TriggerFunc func(Trigger) error

// Registry owns the binding table and the single input listener.
type Registry struct {
	mu       sync.RWMutex
	source   Source
	onFire   TriggerFunc
	policy   Policy
	byCombo  map[Combo]*Binding
	byID     map[BindingID]*Binding
	nextID   BindingID
	started  bool
	stopped  bool
	diag     chan string
	diagDone chan struct{}
	log      *zap.SugaredLogger
}

// NewRegistry creates a registry over source. onFire is called for every
// matched combination.
func NewRegistry(source Source, onFire TriggerFunc, policy Policy, log *zap.SugaredLogger) *Registry {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Registry{
		source:  source,
		onFire:  onFire,
		policy:  policy,
		byCombo: make(map[Combo]*Binding),
		byID:    make(map[BindingID]*Binding),
		diag:    make(chan string, 64),
		log:     log,
	}
}

// Start clears stale hooks, installs the listener and arms every binding
// registered so far. Calling Start twice is a no-op.
func (r *Registry) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	if r.stopped {
		return ErrSourceStopped
	}

	if err := r.source.Reset(); err != nil {
		r.log.Warnw("failed to clear stale input hooks", "error", err)
	}
	if err := r.source.Start(r.match); err != nil {
		return fmt.Errorf("start hotkey source: %w", err)
	}
	r.started = true
	r.diagDone = make(chan struct{})
	go r.drainDiagnostics(r.diagDone)

	for _, b := range r.sortedLocked() {
		if err := r.source.Watch(b.Combo, b.Suppress); err != nil {
			r.log.Errorw("failed to grab hotkey", "combo", b.Combo.String(), "error", err)
		}
	}
	r.log.Infow("hotkeys armed", "bindings", len(r.byCombo))
	return nil
}

// Register binds combo. With PolicyOverwrite an existing binding for the
// same combination is replaced.
func (r *Registry) Register(combo Combo, suppress bool) (BindingID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, exists := r.byCombo[combo]
	if exists && r.policy == PolicyReject {
		return 0, &DuplicateBindingError{Combo: combo, Existing: old.ID}
	}

	// A failed grab leaves any previous binding for combo in place.
	if r.started {
		if err := r.source.Watch(combo, suppress); err != nil {
			return 0, fmt.Errorf("grab %s: %w", combo, err)
		}
	}
	if exists {
		r.log.Warnw("overwriting hotkey binding", "combo", combo.String(), "previous", old.ID)
		delete(r.byID, old.ID)
	}

	r.nextID++
	b := &Binding{ID: r.nextID, Combo: combo, Suppress: suppress}
	r.byCombo[combo] = b
	r.byID[b.ID] = b
	return b.ID, nil
}

// Unregister removes a binding. Presses after it returns no longer match;
// already emitted triggers are unaffected.
func (r *Registry) Unregister(id BindingID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("unknown binding %d", id)
	}
	delete(r.byID, id)
	delete(r.byCombo, b.Combo)
	if r.started {
		if err := r.source.Unwatch(b.Combo); err != nil {
			return fmt.Errorf("release %s: %w", b.Combo, err)
		}
	}
	return nil
}

// UnregisterAll removes every binding.
func (r *Registry) UnregisterAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for combo := range r.byCombo {
		if r.started {
			if err := r.source.Unwatch(combo); err != nil {
				r.log.Warnw("failed to release hotkey", "combo", combo.String(), "error", err)
			}
		}
	}
	r.byCombo = make(map[Combo]*Binding)
	r.byID = make(map[BindingID]*Binding)
}

// Stop removes the listener. It is idempotent and safe before Start.
func (r *Registry) Stop() error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	wasStarted := r.started
	r.started = false
	r.mu.Unlock()

	if !wasStarted {
		return nil
	}
	err := r.source.Stop()
	close(r.diag)
	<-r.diagDone
	return err
}

// Lookup returns the active binding for combo.
func (r *Registry) Lookup(combo Combo) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byCombo[combo]
	if !ok {
		return Binding{}, false
	}
	return *b, true
}

// Bindings lists active bindings ordered by ID.
func (r *Registry) Bindings() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked()
}

func (r *Registry) sortedLocked() []Binding {
	out := make([]Binding, 0, len(r.byID))
	for _, b := range r.byID {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// match runs on the capture context.
func (r *Registry) match(c Combo) (matched, suppress bool) {
	defer func() {
		if p := recover(); p != nil {
			r.diagnose(fmt.Sprintf("panic in hotkey match for %s: %v", c, p))
			matched, suppress = false, false
		}
	}()

	r.mu.RLock()
	b, ok := r.byCombo[c]
	var binding Binding
	if ok {
		binding = *b
	}
	r.mu.RUnlock()
	if !ok {
		return false, false
	}

	if r.onFire != nil {
		if err := r.onFire(Trigger{Binding: binding.ID, Combo: c, At: time.Now()}); err != nil {
			r.diagnose(fmt.Sprintf("hotkey %s dropped: %v", c, err))
		}
	}
	return true, binding.Suppress
}

func (r *Registry) diagnose(msg string) {
	defer func() { _ = recover() }()
	select {
	case r.diag <- msg:
	default:
	}
}

func (r *Registry) drainDiagnostics(done chan struct{}) {
	defer close(done)
	for msg := range r.diag {
		r.log.Warn(msg)
	}
}
