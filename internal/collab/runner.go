// Package collab holds the side-effecting collaborators the dispatcher
// drives: launcher prompt, search, opener, audio, process tools, notes,
// notifications, lock, OCR and clipboard history.
package collab

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/anmitsu/go-shlex"
)

// ErrNotConfigured is returned when a tool has no command on this platform.
var ErrNotConfigured = errors.New("tool not configured")

// Runner executes external programs.
type Runner interface {
	// Output runs the program and returns its stdout.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// Start launches the program without waiting for it.
	Start(name string, args ...string) error
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%s failed: %s: %w", name, msg, err)
		}
		return out, fmt.Errorf("%s failed: %w", name, err)
	}
	return out, nil
}

func (ExecRunner) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	// Reap the child in the background.
	go cmd.Wait()
	return nil
}

// Template is a command line with {name} placeholders, split with POSIX
// shell quoting rules. Placeholders are substituted per argument, so values
// containing spaces stay one argument.
type Template string

// Expand splits the template into argv and substitutes vars.
func (t Template) Expand(vars map[string]string) ([]string, error) {
	fields, err := shlex.Split(string(t), true)
	if err != nil {
		return nil, fmt.Errorf("split %q: %w", string(t), err)
	}
	if len(fields) == 0 {
		return nil, ErrNotConfigured
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		for k, v := range vars {
			f = strings.ReplaceAll(f, "{"+k+"}", v)
		}
		out = append(out, f)
	}
	return out, nil
}

// Tools maps tool names to command templates.
type Tools map[string]Template

func (t Tools) output(ctx context.Context, r Runner, name string, vars map[string]string) ([]byte, error) {
	argv, err := t.argv(name, vars)
	if err != nil {
		return nil, err
	}
	return r.Output(ctx, argv[0], argv[1:]...)
}

func (t Tools) start(r Runner, name string, vars map[string]string) error {
	argv, err := t.argv(name, vars)
	if err != nil {
		return err
	}
	return r.Start(argv[0], argv[1:]...)
}

func (t Tools) argv(name string, vars map[string]string) ([]string, error) {
	tmpl, ok := t[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotConfigured)
	}
	argv, err := tmpl.Expand(vars)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return argv, nil
}

// Merge returns defaults overridden by user templates. An empty user
// template disables the tool.
func (t Tools) Merge(user map[string]string) Tools {
	out := make(Tools, len(t)+len(user))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range user {
		if strings.TrimSpace(v) == "" {
			delete(out, k)
			continue
		}
		out[k] = Template(v)
	}
	return out
}
