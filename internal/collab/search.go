package collab

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Searcher runs the configured file search command. It is slow and is only
// called off the owner thread.
type Searcher struct {
	runner  Runner
	command Template
	limit   int
}

func NewSearcher(runner Runner, command string, limit int) *Searcher {
	if limit <= 0 {
		limit = 20
	}
	return &Searcher{runner: runner, command: Template(command), limit: limit}
}

// Search returns up to limit matching paths, one per output line.
func (s *Searcher) Search(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is empty")
	}
	argv, err := s.command.Expand(map[string]string{
		"query": query,
		"limit": strconv.Itoa(s.limit),
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	out, err := s.runner.Output(ctx, argv[0], argv[1:]...)
	if err != nil {
		// locate and grep exit 1 when nothing matches.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		if len(bytes.TrimSpace(out)) == 0 {
			return nil, fmt.Errorf("search: %w", err)
		}
	}
	return s.lines(out), nil
}

// SearchFolders keeps only directories from a search.
func (s *Searcher) SearchFolders(ctx context.Context, query string) ([]string, error) {
	paths, err := s.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	dirs := paths[:0]
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			dirs = append(dirs, p)
		}
	}
	return dirs, nil
}

func (s *Searcher) lines(out []byte) []string {
	var paths []string
	seen := make(map[string]bool)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() && len(paths) < s.limit {
		line := strings.TrimSpace(sc.Text())
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		paths = append(paths, filepath.Clean(line))
	}
	return paths
}
