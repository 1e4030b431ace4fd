package tiling

import "github.com/1broseidon/keyshell/internal/platform"

// DefaultHistorySize is the per-window undo bound used when none is configured.
const DefaultHistorySize = 20

// History is a bounded undo stack per window. It is not safe for concurrent
// use; a Manager owns it on the owner thread.
type History[T any] struct {
	limit  int
	stacks map[platform.WindowID][]T
}

// NewHistory creates a history retaining at most limit entries per window.
func NewHistory[T any](limit int) *History[T] {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return &History[T]{
		limit:  limit,
		stacks: make(map[platform.WindowID][]T),
	}
}

// Push records v for id, evicting the oldest entry when the bound is reached.
func (h *History[T]) Push(id platform.WindowID, v T) {
	stack := h.stacks[id]
	if len(stack) >= h.limit {
		stack = append(stack[:0:0], stack[len(stack)-h.limit+1:]...)
	}
	h.stacks[id] = append(stack, v)
}

// PopApply removes the most recent entry for id and hands it to apply. When
// apply fails the entry is put back so the step can be retried. It returns
// false when the stack is empty.
func (h *History[T]) PopApply(id platform.WindowID, apply func(T) error) (bool, error) {
	stack := h.stacks[id]
	if len(stack) == 0 {
		return false, nil
	}
	top := stack[len(stack)-1]
	if err := apply(top); err != nil {
		return true, err
	}
	h.shrink(id, len(stack)-1)
	return true, nil
}

// PopOldestApply applies the oldest entry for id and clears the whole stack
// on success.
func (h *History[T]) PopOldestApply(id platform.WindowID, apply func(T) error) (bool, error) {
	stack := h.stacks[id]
	if len(stack) == 0 {
		return false, nil
	}
	if err := apply(stack[0]); err != nil {
		return true, err
	}
	delete(h.stacks, id)
	return true, nil
}

// Len reports how many entries are held for id.
func (h *History[T]) Len(id platform.WindowID) int {
	return len(h.stacks[id])
}

// Forget drops every entry for id.
func (h *History[T]) Forget(id platform.WindowID) {
	delete(h.stacks, id)
}

// Windows lists the ids that currently hold at least one entry.
func (h *History[T]) Windows() []platform.WindowID {
	ids := make([]platform.WindowID, 0, len(h.stacks))
	for id := range h.stacks {
		ids = append(ids, id)
	}
	return ids
}

func (h *History[T]) shrink(id platform.WindowID, n int) {
	if n == 0 {
		delete(h.stacks, id)
		return
	}
	h.stacks[id] = h.stacks[id][:n]
}
