package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/1broseidon/keyshell/internal/layoutstore"
)

type LayoutStore struct {
	mu      sync.Mutex
	layouts map[string]layoutstore.Layout
}

func NewLayoutStore() *LayoutStore {
	return &LayoutStore{
		layouts: make(map[string]layoutstore.Layout),
	}
}

func (s *LayoutStore) Save(_ context.Context, layout layoutstore.Layout) error {
	name, err := layoutstore.NormalizeName(layout.Name)
	if err != nil {
		return err
	}
	layout.Name = name
	layout.Windows = append([]layoutstore.Window(nil), layout.Windows...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.layouts[name] = layout
	return nil
}

func (s *LayoutStore) Load(_ context.Context, name string) (layoutstore.Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	layout, ok := s.layouts[name]
	if !ok {
		return layoutstore.Layout{}, fmt.Errorf("load %q: %w", name, layoutstore.ErrNotFound)
	}
	layout.Windows = append([]layoutstore.Window(nil), layout.Windows...)
	return layout, nil
}

func (s *LayoutStore) List(_ context.Context) ([]layoutstore.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]layoutstore.Summary, 0, len(s.layouts))
	for _, layout := range s.layouts {
		out = append(out, layoutstore.Summary{
			Name:    layout.Name,
			SavedAt: layout.SavedAt,
			Windows: len(layout.Windows),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *LayoutStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.layouts[name]; !ok {
		return fmt.Errorf("delete %q: %w", name, layoutstore.ErrNotFound)
	}
	delete(s.layouts, name)
	return nil
}

func (s *LayoutStore) Close() error {
	return nil
}
