//go:build !linux && !windows

package collab

// DefaultTools only covers opening targets elsewhere.
var DefaultTools = Tools{
	"open":  "open {target}",
	"shell": "sh -c {command}",
}
