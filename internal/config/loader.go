package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceFile    SourceKind = "file"
)

// Source records where a setting came from.
type Source struct {
	Kind   SourceKind
	Name   string // default name, for SourceDefault
	File   string
	Line   int
	Column int
}

type LoadResult struct {
	Config *Config
	// Sources maps a dotted YAML path to the file position that last set it.
	Sources map[string]Source
	// Files lists every file merged, includes first.
	Files []string
}

// LoadError reports a configuration file that exists but could not be used.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

const appName = "keyshell"

// DefaultConfigPath returns $XDG_CONFIG_HOME/keyshell/config.yaml.
func DefaultConfigPath() (string, error) {
	if xdg.ConfigHome == "" {
		return "", fmt.Errorf("config directory is unknown")
	}
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml"), nil
}

// DataFile returns a path under $XDG_DATA_HOME/keyshell, creating the
// directory.
func DataFile(name string) (string, error) {
	path, err := xdg.DataFile(filepath.Join(appName, name))
	if err != nil {
		return "", fmt.Errorf("data file %s: %w", name, err)
	}
	return path, nil
}

// LoadWithSources layers the built-in defaults, the user file and, when
// override is set, an explicit file. A missing user file is fine; a missing
// override is not.
func LoadWithSources(override string) (*LoadResult, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	if strings.TrimSpace(override) == "" {
		return LoadFromPaths([]string{path}, false)
	}
	return LoadFromPaths([]string{path, override}, true)
}

// LoadFromPath loads one optional file over the defaults.
func LoadFromPath(path string) (*LoadResult, error) {
	return LoadFromPaths([]string{path}, false)
}

// LoadFromPaths merges files over the defaults in order. With lastRequired
// the final path must exist.
func LoadFromPaths(paths []string, lastRequired bool) (*LoadResult, error) {
	l := &loader{sources: map[string]Source{}, seen: map[string]bool{}}
	for i, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) && !(lastRequired && i == len(paths)-1) {
				continue
			}
			return nil, &LoadError{Path: path, Err: err}
		}
		raw, err := l.file(path)
		if err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}
		l.raw = l.raw.merge(raw)
	}

	cfg, err := BuildEffectiveConfig(l.raw)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, &LoadError{Path: l.lastFile(), Err: l.locate(err)}
	}
	return &LoadResult{Config: cfg, Sources: l.sources, Files: l.files}, nil
}

// LoadOrDefault never fails: a bad configuration yields the built-in
// defaults together with the error so the caller can log it.
func LoadOrDefault(override string) (*LoadResult, error) {
	res, err := LoadWithSources(override)
	if err != nil {
		return &LoadResult{Config: DefaultConfig(), Sources: map[string]Source{}}, err
	}
	return res, nil
}

// loader merges one file tree. Includes are applied before the including
// file, so a file overrides what it includes.
type loader struct {
	raw     RawConfig
	sources map[string]Source
	files   []string
	seen    map[string]bool
	stack   []string
}

func (l *loader) file(path string) (RawConfig, error) {
	canon := canonicalPath(path)
	for _, open := range l.stack {
		if open == canon {
			return RawConfig{}, fmt.Errorf("include cycle: %s -> %s", strings.Join(l.stack, " -> "), canon)
		}
	}
	if l.seen[canon] {
		return RawConfig{}, nil
	}
	l.seen[canon] = true

	data, err := os.ReadFile(canon)
	if err != nil {
		return RawConfig{}, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return RawConfig{}, fmt.Errorf("%s: %w", canon, err)
	}
	var own RawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&own); err != nil && !errors.Is(err, io.EOF) {
		return RawConfig{}, fmt.Errorf("%s: %w", canon, err)
	}

	l.stack = append(l.stack, canon)
	defer func() { l.stack = l.stack[:len(l.stack)-1] }()

	var merged RawConfig
	root := documentRoot(&doc)
	for _, inc := range includeNodes(root) {
		paths, err := expandInclude(canon, inc.Value)
		if err != nil {
			return RawConfig{}, fmt.Errorf("%s:%d:%d: include %q: %w", canon, inc.Line, inc.Column, inc.Value, err)
		}
		for _, p := range paths {
			raw, err := l.file(p)
			if err != nil {
				return RawConfig{}, err
			}
			merged = merged.merge(raw)
		}
	}

	recordSources(root, canon, "", l.sources)
	l.files = append(l.files, canon)
	return merged.merge(own), nil
}

func (l *loader) lastFile() string {
	if len(l.files) == 0 {
		return ""
	}
	return l.files[len(l.files)-1]
}

// locate attaches the file position of the offending setting.
func (l *loader) locate(err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) && verr.Path != "" {
		if src, ok := l.sources[verr.Path]; ok {
			verr.Source = src
		}
	}
	return err
}

func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return doc
}

// includeNodes returns the scalar values of the top-level include key,
// which may be a string or a list.
func includeNodes(root *yaml.Node) []*yaml.Node {
	if root.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "include" {
			continue
		}
		val := root.Content[i+1]
		if val.Kind == yaml.ScalarNode {
			return []*yaml.Node{val}
		}
		var out []*yaml.Node
		for _, item := range val.Content {
			if item.Kind == yaml.ScalarNode {
				out = append(out, item)
			}
		}
		return out
	}
	return nil
}

// expandInclude resolves an include relative to the including file. A
// directory expands to its *.yaml and *.yml files in name order.
func expandInclude(from, include string) ([]string, error) {
	if include == "" {
		return nil, fmt.Errorf("path is empty")
	}
	path, err := expandHome(include)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(from), path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			if !e.IsDir() {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// recordSources stores the position of every mapping value under its
// dotted path. Sequences are recorded as a whole.
func recordSources(node *yaml.Node, file, prefix string, out map[string]Source) {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i].Value, node.Content[i+1]
			if prefix != "" {
				key = prefix + "." + key
			}
			out[key] = Source{Kind: SourceFile, File: file, Line: val.Line, Column: val.Column}
			recordSources(val, file, key, out)
		}
	case yaml.SequenceNode:
		if prefix != "" {
			out[prefix] = Source{Kind: SourceFile, File: file, Line: node.Line, Column: node.Column}
		}
	}
}
