package palette

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"os/exec"
	"strconv"
	"strings"
)

// program describes how one launcher is invoked.
type program struct {
	name string
	caps Capabilities
	// args builds the command line. freeText accepts typed input and prints
	// the text instead of a row index.
	args func(prompt, message string, freeText bool) []string
}

var programs = map[string]program{
	"rofi": {
		name: "rofi",
		caps: Capabilities{Icons: true, Markup: true, IndexOutput: true, MessageBar: true},
		args: func(prompt, message string, freeText bool) []string {
			args := withPrompt([]string{"-dmenu", "-i", "-markup-rows", "-show-icons"}, "-p", prompt)
			if freeText {
				args = append(args, "-format", "s")
			} else {
				args = append(args, "-format", "i", "-no-custom")
			}
			if message != "" {
				args = append(args, "-mesg", message)
			}
			return args
		},
	},
	"fuzzel": {
		name: "fuzzel",
		caps: Capabilities{Icons: true, IndexOutput: true},
		args: func(prompt, _ string, freeText bool) []string {
			args := withPrompt([]string{"--dmenu"}, "--prompt", prompt)
			if !freeText {
				args = append(args, "--index")
			}
			return args
		},
	},
	"wofi": {
		name: "wofi",
		caps: Capabilities{Icons: true, Markup: true},
		args: func(prompt, _ string, _ bool) []string {
			return withPrompt([]string{"--dmenu", "--allow-markup", "--allow-images"}, "--prompt", prompt)
		},
	},
	"dmenu": {
		name: "dmenu",
		args: func(prompt, _ string, _ bool) []string {
			return withPrompt([]string{"-i"}, "-p", prompt)
		},
	},
}

func withPrompt(args []string, flag, prompt string) []string {
	if prompt == "" {
		return args
	}
	return append(args, flag, prompt)
}

// Command runs a launcher as a child process: rows go to its stdin, the
// choice comes back on stdout.
type Command struct {
	program
	run func(name string, args []string, input string) (string, error)
}

func newCommand(p program) *Command {
	return &Command{program: p, run: execRun}
}

func (c *Command) Capabilities() Capabilities {
	return c.caps
}

func (c *Command) Show(prompt string, items []Item, message string) (SelectResult, error) {
	if len(items) == 0 {
		return SelectResult{}, fmt.Errorf("%s: nothing to show", c.name)
	}
	labels := c.labels(items)
	out, err := c.exec(c.args(prompt, message, false), c.rows(items, labels))
	if err != nil {
		return SelectResult{}, err
	}
	if c.caps.IndexOutput {
		if i, err := strconv.Atoi(out); err == nil {
			if i < 0 || i >= len(items) {
				return SelectResult{}, fmt.Errorf("%s: row %d out of range", c.name, i)
			}
			return SelectResult{Item: items[i]}, nil
		}
	}
	for i, label := range labels {
		if label == out {
			return SelectResult{Item: items[i]}, nil
		}
	}
	return SelectResult{}, fmt.Errorf("%s: unknown selection %q", c.name, out)
}

func (c *Command) Prompt(prompt string, suggestions []Item, message string) (string, error) {
	labels := c.labels(suggestions)
	out, err := c.exec(c.args(prompt, message, true), c.rows(suggestions, labels))
	if err != nil {
		return "", err
	}
	if c.caps.Markup {
		out = html.UnescapeString(out)
	}
	for i, label := range labels {
		if suggestions[i].Action != "" && label == out {
			return suggestions[i].Action, nil
		}
	}
	return out, nil
}

func (c *Command) exec(args []string, input string) (string, error) {
	out, err := c.run(c.name, args, input)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrCancelled
	}
	return out, nil
}

// labels flattens each label to one line. Launchers that print the row text
// need unique labels, so repeats get a counter suffix.
func (c *Command) labels(items []Item) []string {
	labels := make([]string, len(items))
	seen := make(map[string]int)
	for i, item := range items {
		label := oneLine(item.Label)
		if !c.caps.IndexOutput && label != "" {
			seen[label]++
			if n := seen[label]; n > 1 {
				label = fmt.Sprintf("%s (%d)", label, n)
			}
		}
		labels[i] = label
	}
	return labels
}

func (c *Command) rows(items []Item, labels []string) string {
	rows := make([]string, len(items))
	for i, item := range items {
		rows[i] = c.row(item, labels[i])
	}
	return strings.Join(rows, "\n")
}

// row encodes one line of input. rofi reads row properties after a single
// NUL as \x1f separated key/value pairs.
func (c *Command) row(item Item, label string) string {
	if c.caps.Markup {
		label = html.EscapeString(label)
	}
	if c.name != "rofi" {
		return label
	}
	var props []string
	add := func(key, value string) {
		if value = rofiField(value); value != "" {
			props = append(props, key, value)
		}
	}
	add("icon", item.Icon)
	add("info", item.Info)
	add("meta", item.Meta)
	if len(props) == 0 {
		return label
	}
	return label + "\x00" + strings.Join(props, "\x1f")
}

func oneLine(s string) string {
	return strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(s))
}

func rofiField(s string) string {
	return oneLine(strings.NewReplacer("\x00", " ", "\x1f", " ").Replace(s))
}

func execRun(name string, args []string, input string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(input)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err == nil {
		return string(out), nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// 1 is "no selection", 130 is Ctrl+C.
		if code := exitErr.ExitCode(); code == 1 || code == 130 {
			return "", ErrCancelled
		}
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return "", fmt.Errorf("%s failed: %s", name, msg)
	}
	return "", fmt.Errorf("%s failed: %w", name, err)
}
