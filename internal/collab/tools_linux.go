//go:build linux

package collab

// DefaultTools are the command templates used on Linux desktops.
var DefaultTools = Tools{
	"open":        "xdg-open {target}",
	"shell":       "sh -c {command}",
	"notify":      "notify-send -a keyshell {title} {body}",
	"lock":        "loginctl lock-session",
	"ocr":         "sh -c 'maim -s | tesseract stdin stdout 2>/dev/null'",
	"volume":      "pactl set-sink-volume @DEFAULT_SINK@ {level}%",
	"mute":        "pactl set-sink-mute @DEFAULT_SINK@ toggle",
	"mic":         "pactl set-source-mute @DEFAULT_SOURCE@ toggle",
	"sink_inputs": "pactl list sink-inputs",
	"mute_input":  "pactl set-sink-input-mute {id} toggle",
	"audio":       "pactl set-default-sink {device}",
	"media_next":  "playerctl next",
	"media_prev":  "playerctl previous",
	"media_pause": "playerctl pause",
	"media_play":  "playerctl play-pause",
}
