package hotkeys

import (
	"fmt"
	"strings"
)

// Modifier is a bit set of held modifier keys.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModAlt
	ModShift
	ModSuper
)

var modifierOrder = []struct {
	mod  Modifier
	name string
}{
	{ModCtrl, "ctrl"},
	{ModAlt, "alt"},
	{ModShift, "shift"},
	{ModSuper, "super"},
}

var modifierAliases = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"mod1":    ModAlt,
	"shift":   ModShift,
	"super":   ModSuper,
	"win":     ModSuper,
	"windows": ModSuper,
	"cmd":     ModSuper,
	"meta":    ModSuper,
	"mod4":    ModSuper,
}

var keyAliases = map[string]string{
	"return":     "enter",
	"esc":        "escape",
	"pgup":       "pageup",
	"prior":      "pageup",
	"pgdn":       "pagedown",
	"next":       "pagedown",
	"del":        "delete",
	"ins":        "insert",
	"bksp":       "backspace",
	"arrowleft":  "left",
	"arrowright": "right",
	"arrowup":    "up",
	"arrowdown":  "down",
	"-":          "minus",
	"=":          "equal",
	",":          "comma",
	".":          "period",
	"/":          "slash",
	";":          "semicolon",
	"'":          "apostrophe",
	"`":          "grave",
	"[":          "bracketleft",
	"]":          "bracketright",
	"\\":         "backslash",
}

var namedKeys = map[string]bool{
	"left": true, "right": true, "up": true, "down": true,
	"enter": true, "space": true, "tab": true, "escape": true,
	"backspace": true, "delete": true, "insert": true,
	"home": true, "end": true, "pageup": true, "pagedown": true,
	"minus": true, "equal": true, "comma": true, "period": true,
	"slash": true, "semicolon": true, "apostrophe": true, "grave": true,
	"bracketleft": true, "bracketright": true, "backslash": true,
	"print": true, "pause": true,
}

// Combo is a normalized key combination: a modifier set plus one key.
type Combo struct {
	Mods Modifier
	Key  string
}

// ParseCombo parses strings such as "ctrl+alt+Left" or "Win+Shift+t".
// Modifier order and case are irrelevant; the result is normalized.
func ParseCombo(s string) (Combo, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Combo{}, fmt.Errorf("empty key combination")
	}

	var c Combo
	parts := strings.Split(s, "+")
	for i, raw := range parts {
		tok := strings.ToLower(strings.Trim(strings.TrimSpace(raw), "<>"))
		if tok == "" {
			return Combo{}, fmt.Errorf("key combination %q has an empty token", s)
		}
		if mod, ok := modifierAliases[tok]; ok && i < len(parts)-1 {
			c.Mods |= mod
			continue
		}
		if i != len(parts)-1 {
			return Combo{}, fmt.Errorf("key combination %q: %q is not a modifier", s, tok)
		}
		key, err := normalizeKey(tok)
		if err != nil {
			return Combo{}, fmt.Errorf("key combination %q: %w", s, err)
		}
		c.Key = key
	}
	return c, nil
}

// MustParseCombo is ParseCombo that panics; for tables and tests.
func MustParseCombo(s string) Combo {
	c, err := ParseCombo(s)
	if err != nil {
		panic(err)
	}
	return c
}

func normalizeKey(tok string) (string, error) {
	if alias, ok := keyAliases[tok]; ok {
		tok = alias
	}
	switch {
	case len(tok) == 1 && (tok[0] >= 'a' && tok[0] <= 'z' || tok[0] >= '0' && tok[0] <= '9'):
		return tok, nil
	case namedKeys[tok]:
		return tok, nil
	case isFunctionKey(tok):
		return tok, nil
	}
	return "", fmt.Errorf("unknown key %q", tok)
}

func isFunctionKey(tok string) bool {
	if len(tok) < 2 || tok[0] != 'f' {
		return false
	}
	n := 0
	for _, r := range tok[1:] {
		if r < '0' || r > '9' {
			return false
		}
		n = n*10 + int(r-'0')
	}
	return n >= 1 && n <= 24
}

// Has reports whether m is held.
func (c Combo) Has(m Modifier) bool {
	return c.Mods&m != 0
}

// String renders the canonical form, e.g. "ctrl+alt+left".
func (c Combo) String() string {
	var b strings.Builder
	for _, m := range modifierOrder {
		if c.Mods&m.mod != 0 {
			b.WriteString(m.name)
			b.WriteByte('+')
		}
	}
	b.WriteString(c.Key)
	return b.String()
}
