//go:build windows

package collab

// DefaultTools are the command templates used on Windows. Audio control
// goes through nircmd, which must be on PATH.
var DefaultTools = Tools{
	"open":        "cmd /c start \"\" {target}",
	"shell":       "cmd /c {command}",
	"lock":        "rundll32.exe user32.dll,LockWorkStation",
	"volume":      "nircmd setsysvolume {level65535}",
	"mute":        "nircmd mutesysvolume 2",
	"mic":         "nircmd mutesysvolume 2 default_record",
	"mute_app":    "nircmd muteappvolume {app} 2",
	"audio":       "nircmd setdefaultsounddevice {device}",
	"media_next":  "nircmd sendkeypress 0xB0",
	"media_prev":  "nircmd sendkeypress 0xB1",
	"media_pause": "nircmd sendkeypress 0xB3",
	"media_play":  "nircmd sendkeypress 0xB3",
}
