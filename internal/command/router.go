package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/1broseidon/keyshell/internal/hotkeys"
)

// ErrNoMatch means no matcher accepted launcher text. It is not a failure:
// the caller falls back to the search collaborator.
var ErrNoMatch = errors.New("no command matched")

// Event is a router input.
type Event interface {
	routerEvent()
}

// HotkeyEvent originates from a matched key combination.
type HotkeyEvent struct {
	Binding hotkeys.BindingID
}

// TextEvent originates from launcher text.
type TextEvent struct {
	Text string
}

// NamedEvent names a command directly, as IPC EXEC does.
type NamedEvent struct {
	Name string
}

func (HotkeyEvent) routerEvent() {}
func (TextEvent) routerEvent()   {}
func (NamedEvent) routerEvent()  {}

// Router maps events to commands. It has no side effects and is used only
// from the owner thread after setup.
type Router struct {
	bindings map[hotkeys.BindingID]Command
	keywords map[string]Keyword
}

// NewRouter builds a router over the custom keyword table.
func NewRouter(keywords []Keyword) *Router {
	r := &Router{
		bindings: make(map[hotkeys.BindingID]Command),
		keywords: make(map[string]Keyword, len(keywords)),
	}
	for _, k := range keywords {
		r.keywords[strings.ToLower(k.Name)] = k
	}
	return r
}

// Bind associates a binding with a command. Entries are kept after the
// binding is unregistered so already queued triggers still resolve.
func (r *Router) Bind(id hotkeys.BindingID, cmd Command) {
	r.bindings[id] = cmd
}

// Keywords lists the custom keyword table.
func (r *Router) Keywords() []Keyword {
	out := make([]Keyword, 0, len(r.keywords))
	for _, k := range r.keywords {
		out = append(out, k)
	}
	return out
}

// Parse is the package Parse with "run:" text also matched against the
// custom keyword table.
func (r *Router) Parse(name string) (Command, error) {
	return parse(name, r.keywords)
}

// Resolve turns an event into a command. Launcher text no matcher accepts
// yields ErrNoMatch.
func (r *Router) Resolve(ev Event) (Command, error) {
	switch e := ev.(type) {
	case HotkeyEvent:
		cmd, ok := r.bindings[e.Binding]
		if !ok {
			return nil, fmt.Errorf("no command bound to binding %d", e.Binding)
		}
		return cmd, nil
	case TextEvent:
		return matchText(e.Text, r.keywords)
	case NamedEvent:
		return r.Parse(e.Name)
	}
	return nil, fmt.Errorf("unsupported event %T", ev)
}

type matcher func(text, verb, arg string, keywords map[string]Keyword) (Command, bool)

// textMatchers run in order; the first to accept wins.
var textMatchers = []matcher{
	matchKeyword,
	matchArithmetic,
	matchVerb,
}

func matchText(text string, keywords map[string]Keyword) (Command, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoMatch
	}
	verb, arg, _ := strings.Cut(text, " ")
	verb = strings.ToLower(verb)
	arg = strings.TrimSpace(arg)

	for _, m := range textMatchers {
		if cmd, ok := m(text, verb, arg, keywords); ok {
			return cmd, nil
		}
	}
	return nil, ErrNoMatch
}

func matchKeyword(_, verb, arg string, keywords map[string]Keyword) (Command, bool) {
	k, ok := keywords[verb]
	if !ok {
		return nil, false
	}
	return ExternalOp{Action: ExternalKeyword, Arg: arg, Keyword: &k}, true
}

func matchArithmetic(text, _, _ string, _ map[string]Keyword) (Command, bool) {
	if strings.HasPrefix(text, "http") || !LooksArithmetic(text) {
		return nil, false
	}
	v, err := Evaluate(text)
	if err != nil {
		return nil, false
	}
	return ExternalOp{Action: ExternalCalculate, Arg: FormatNumber(v), Number: v}, true
}

func matchVerb(_, verb, arg string, _ map[string]Keyword) (Command, bool) {
	switch verb {
	case "kp":
		port, err := strconv.Atoi(arg)
		if err != nil || port < 1 || port > 65535 {
			return nil, false
		}
		return ExternalOp{Action: ExternalKillPort, Arg: arg, Number: float64(port)}, true
	case "kill":
		if arg == "" {
			return nil, false
		}
		return ExternalOp{Action: ExternalKillProcess, Arg: arg}, true
	case "p":
		if arg == "" {
			return nil, false
		}
		return ExternalOp{Action: ExternalProject, Arg: arg}, true
	case "vol":
		level, err := strconv.Atoi(arg)
		if err != nil || level < 0 || level > 100 {
			return nil, false
		}
		return ExternalOp{Action: ExternalVolume, Arg: arg, Number: float64(level)}, true
	case "mute":
		return ExternalOp{Action: ExternalMute}, true
	case "mic":
		return ExternalOp{Action: ExternalMicMute}, true
	case "ma":
		if arg == "" {
			return nil, false
		}
		return ExternalOp{Action: ExternalMuteApp, Arg: arg}, true
	case "audio":
		return ExternalOp{Action: ExternalAudioDevice, Arg: arg}, true
	case "next", "prev", "pause", "play":
		return ExternalOp{Action: ExternalMedia, Arg: verb}, true
	case "lock":
		return ExternalOp{Action: ExternalLock}, true
	case "yt":
		if arg == "" {
			return nil, false
		}
		return ExternalOp{Action: ExternalYouTube, Arg: arg}, true
	case "ocr":
		return ExternalOp{Action: ExternalOCR}, true
	case "clip":
		return LauncherOp{Action: LauncherClipMode}, true
	case "note":
		return ExternalOp{Action: ExternalNote, Arg: arg}, true
	}
	return nil, false
}

// SearchFor is the command the dispatcher runs when Resolve returns
// ErrNoMatch for non-empty text.
func SearchFor(text string) Command {
	return ExternalOp{Action: ExternalSearch, Arg: strings.TrimSpace(text)}
}
