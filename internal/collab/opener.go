package collab

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Opener opens URLs, files and folders with the desktop handler and runs
// keyword shell commands.
type Opener struct {
	runner Runner
	tools  Tools
}

func NewOpener(runner Runner, tools Tools) *Opener {
	return &Opener{runner: runner, tools: tools}
}

// Open hands target to the desktop handler.
func (o *Opener) Open(target string) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return fmt.Errorf("open: empty target")
	}
	return o.tools.start(o.runner, "open", map[string]string{"target": target})
}

// YouTube opens a YouTube search for query.
func (o *Opener) YouTube(query string) error {
	return o.Open("https://www.youtube.com/results?search_query=" + url.QueryEscape(query))
}

// Shell runs command through the platform shell and waits for it.
func (o *Opener) Shell(ctx context.Context, command string) (string, error) {
	out, err := o.tools.output(ctx, o.runner, "shell", map[string]string{"command": command})
	return strings.TrimSpace(string(out)), err
}

// Project opens dir with the project command template, e.g. "code {path}".
func (o *Opener) Project(projectCommand, dir string) error {
	argv, err := Template(projectCommand).Expand(map[string]string{"path": dir})
	if err != nil {
		return fmt.Errorf("project: %w", err)
	}
	return o.runner.Start(argv[0], argv[1:]...)
}
