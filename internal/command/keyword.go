package command

import (
	"fmt"
	"net/url"
	"strings"
)

// KeywordType says how a keyword target is opened.
type KeywordType string

const (
	KeywordURL    KeywordType = "url"
	KeywordFile   KeywordType = "file"
	KeywordFolder KeywordType = "folder"
	KeywordCmd    KeywordType = "cmd"
	KeywordSearch KeywordType = "search"
	KeywordNote   KeywordType = "note"
	KeywordCopy   KeywordType = "copy"
)

// ParseKeywordType validates a configured keyword type.
func ParseKeywordType(s string) (KeywordType, error) {
	t := KeywordType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case KeywordURL, KeywordFile, KeywordFolder, KeywordCmd, KeywordSearch, KeywordNote, KeywordCopy:
		return t, nil
	case "":
		return KeywordURL, nil
	}
	return "", fmt.Errorf("unknown keyword type %q", s)
}

// Keyword is a user-defined launcher shortcut.
type Keyword struct {
	Name   string
	Type   KeywordType
	Target string
}

// Expand substitutes {query} in the target. Search and URL targets
// receive the query escaped; a search target without a placeholder gets
// the query appended when it ends in "=".
func (k Keyword) Expand(query string) string {
	q := query
	if k.Type == KeywordSearch || k.Type == KeywordURL {
		q = url.QueryEscape(query)
	}
	if strings.Contains(k.Target, "{query}") {
		return strings.ReplaceAll(k.Target, "{query}", q)
	}
	if k.Type == KeywordSearch && query != "" && strings.HasSuffix(k.Target, "=") {
		return k.Target + q
	}
	return k.Target
}
