package palette

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

type recordedRun struct {
	name  string
	args  []string
	input string
}

// scripted returns a Command whose runs are recorded and answered with out.
func scripted(name string, out string, runs *[]recordedRun) *Command {
	c := newCommand(programs[name])
	c.run = func(name string, args []string, input string) (string, error) {
		*runs = append(*runs, recordedRun{name: name, args: args, input: input})
		return out, nil
	}
	return c
}

func TestRofiRowsCarryProperties(t *testing.T) {
	c := newCommand(programs["rofi"])
	got := c.row(Item{Label: "Fish & chips", Icon: "folder", Info: "3\x1f"}, "Fish & chips")
	want := "Fish &amp; chips\x00icon\x1ffolder\x1finfo\x1f3"
	if got != want {
		t.Fatalf("row = %q, want %q", got, want)
	}
	if got := c.row(Item{Label: "plain"}, "plain"); got != "plain" {
		t.Fatalf("row without properties = %q", got)
	}
}

func TestDmenuRowsArePlainText(t *testing.T) {
	c := newCommand(programs["dmenu"])
	if got := c.row(Item{Label: "a & b", Icon: "folder"}, "a & b"); got != "a & b" {
		t.Fatalf("row = %q", got)
	}
}

func TestRofiShowSelectsByIndex(t *testing.T) {
	var runs []recordedRun
	c := scripted("rofi", "1\n", &runs)
	items := []Item{{Label: "one", Action: "a"}, {Label: "two", Action: "b"}}

	res, err := c.Show("pick", items, "hello")
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if res.Item.Action != "b" {
		t.Fatalf("picked %+v", res.Item)
	}
	args := strings.Join(runs[0].args, " ")
	for _, want := range []string{"-dmenu", "-p pick", "-format i", "-no-custom", "-mesg hello"} {
		if !strings.Contains(args, want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}
	if runs[0].input != "one\ntwo" {
		t.Fatalf("input = %q", runs[0].input)
	}
}

func TestShowRejectsOutOfRangeIndex(t *testing.T) {
	var runs []recordedRun
	c := scripted("fuzzel", "7", &runs)
	if _, err := c.Show("", []Item{{Label: "one"}}, ""); err == nil {
		t.Fatal("expected out of range error")
	}
	if !reflect.DeepEqual(runs[0].args, []string{"--dmenu", "--index"}) {
		t.Fatalf("args = %v", runs[0].args)
	}
}

func TestTextBackendsDisambiguateDuplicateLabels(t *testing.T) {
	var runs []recordedRun
	c := scripted("dmenu", "dup (2)", &runs)
	items := []Item{{Label: "dup", Info: "first"}, {Label: "dup", Info: "second"}}

	res, err := c.Show("", items, "")
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if res.Item.Info != "second" {
		t.Fatalf("picked %+v", res.Item)
	}
	if runs[0].input != "dup\ndup (2)" {
		t.Fatalf("input = %q", runs[0].input)
	}
}

func TestIndexBackendsKeepDuplicateLabels(t *testing.T) {
	c := newCommand(programs["rofi"])
	got := c.labels([]Item{{Label: "dup"}, {Label: "dup"}})
	if !reflect.DeepEqual(got, []string{"dup", "dup"}) {
		t.Fatalf("labels = %v", got)
	}
}

func TestPromptReturnsTypedText(t *testing.T) {
	var runs []recordedRun
	c := scripted("rofi", "kp 3000 &amp; more", &runs)

	got, err := c.Prompt("keyshell", []Item{{Label: "Window commands", Action: "menu"}}, "")
	if err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if got != "kp 3000 & more" {
		t.Fatalf("Prompt = %q", got)
	}
	args := strings.Join(runs[0].args, " ")
	if !strings.Contains(args, "-format s") || strings.Contains(args, "-no-custom") {
		t.Fatalf("free text args = %q", args)
	}
}

func TestPromptMapsSuggestionToAction(t *testing.T) {
	var runs []recordedRun
	c := scripted("fuzzel", "Window commands", &runs)

	got, err := c.Prompt("", []Item{{Label: "Window commands", Action: "menu"}, {Label: "gs "}}, "")
	if err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if got != "menu" {
		t.Fatalf("Prompt = %q", got)
	}
	for _, a := range runs[0].args {
		if a == "--index" {
			t.Fatalf("free text prompt must not ask for an index: %v", runs[0].args)
		}
	}
}

func TestEmptyOutputIsCancellation(t *testing.T) {
	var runs []recordedRun
	c := scripted("wofi", "  \n", &runs)
	if _, err := c.Prompt("", nil, ""); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestShowWithoutItems(t *testing.T) {
	var runs []recordedRun
	c := scripted("rofi", "0", &runs)
	if _, err := c.Show("", nil, ""); err == nil {
		t.Fatal("expected error")
	}
	if len(runs) != 0 {
		t.Fatal("launcher should not run without items")
	}
}

type fakeBackend struct {
	results []SelectResult
	prompts []string
	shown   [][]Item
}

func (f *fakeBackend) Show(prompt string, items []Item, message string) (SelectResult, error) {
	f.prompts = append(f.prompts, prompt)
	f.shown = append(f.shown, items)
	if len(f.results) == 0 {
		return SelectResult{}, ErrCancelled
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res, nil
}

func (f *fakeBackend) Prompt(prompt string, suggestions []Item, message string) (string, error) {
	return "", ErrCancelled
}

func (f *fakeBackend) Capabilities() Capabilities {
	return Capabilities{}
}

func TestMenuSubmenuAndBack(t *testing.T) {
	fb := &fakeBackend{
		results: []SelectResult{
			{Item: Item{Action: submenuAction + "0"}},
			{Item: Item{Action: backAction}},
			{Item: Item{Action: "undo"}},
		},
	}
	m := NewMenu(fb, []MenuItem{
		{Label: "Tile", Submenu: []MenuItem{{Label: "Left half", Action: "tile_left_half"}}},
		{Label: "Undo", Action: "undo"},
	})

	action, err := m.Show()
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if action != "undo" {
		t.Fatalf("action = %q", action)
	}
	if !reflect.DeepEqual(fb.prompts, []string{"keyshell", "Tile", "keyshell"}) {
		t.Fatalf("prompts = %v", fb.prompts)
	}
	if fb.shown[0][0].Label != "Tile →" || fb.shown[1][0].Action != backAction {
		t.Fatalf("unexpected rows %+v", fb.shown)
	}
}

func TestMenuCancelInSubmenu(t *testing.T) {
	fb := &fakeBackend{results: []SelectResult{{Item: Item{Action: submenuAction + "0"}}}}
	m := NewMenu(fb, []MenuItem{{Label: "Tile", Submenu: []MenuItem{{Label: "Left", Action: "tile_left_half"}}}})
	if _, err := m.Show(); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestMenuIgnoresStaleSubmenuIndex(t *testing.T) {
	fb := &fakeBackend{
		results: []SelectResult{
			{Item: Item{Action: submenuAction + "9"}},
			{Item: Item{}},
			{Item: Item{Action: "undo"}},
		},
	}
	m := NewMenu(fb, []MenuItem{{Label: "Undo", Action: "undo"}})
	action, err := m.Show()
	if err != nil || action != "undo" {
		t.Fatalf("Show = %q, %v", action, err)
	}
}

func TestDetectBackendPriority(t *testing.T) {
	orig := lookPath
	defer func() { lookPath = orig }()
	available := map[string]bool{"wofi": true, "dmenu": true}
	lookPath = func(name string) (string, error) {
		if available[name] {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	}

	name, err := DetectBackend()
	if err != nil || name != "wofi" {
		t.Fatalf("DetectBackend = %q, %v", name, err)
	}
	b, err := NewBackend("auto")
	if err != nil {
		t.Fatalf("NewBackend(auto): %v", err)
	}
	if b.(*Command).name != "wofi" {
		t.Fatalf("auto picked %q", b.(*Command).name)
	}
	if _, err := NewBackend("rofi"); err == nil {
		t.Fatal("expected error for a launcher missing from PATH")
	}
	if _, err := NewBackend("nope"); err == nil {
		t.Fatal("expected unknown launcher error")
	}

	available = map[string]bool{}
	if _, err := DetectBackend(); err == nil {
		t.Fatal("expected error with no launchers")
	}
}
