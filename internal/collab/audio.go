package collab

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Audio drives volume, mute, output device and media keys through the
// platform tool templates.
type Audio struct {
	runner  Runner
	tools   Tools
	devices map[string]string
}

// NewAudio creates an audio collaborator. devices maps short aliases such as
// "head" to device names.
func NewAudio(runner Runner, tools Tools, devices map[string]string) *Audio {
	return &Audio{runner: runner, tools: tools, devices: devices}
}

// SetVolume sets the master volume to level percent.
func (a *Audio) SetVolume(ctx context.Context, level int) error {
	if level < 0 || level > 100 {
		return fmt.Errorf("volume %d out of range 0-100", level)
	}
	_, err := a.tools.output(ctx, a.runner, "volume", map[string]string{
		"level":      strconv.Itoa(level),
		"level65535": strconv.Itoa(65535 * level / 100),
	})
	return err
}

func (a *Audio) ToggleMute(ctx context.Context) error {
	_, err := a.tools.output(ctx, a.runner, "mute", nil)
	return err
}

func (a *Audio) ToggleMic(ctx context.Context) error {
	_, err := a.tools.output(ctx, a.runner, "mic", nil)
	return err
}

// MuteApp toggles mute on every stream whose application name contains app.
// It returns how many streams were toggled.
func (a *Audio) MuteApp(ctx context.Context, app string) (int, error) {
	if _, ok := a.tools["mute_app"]; ok {
		if _, err := a.tools.output(ctx, a.runner, "mute_app", map[string]string{"app": app}); err != nil {
			return 0, err
		}
		return 1, nil
	}

	out, err := a.tools.output(ctx, a.runner, "sink_inputs", nil)
	if err != nil {
		return 0, err
	}
	ids := sinkInputsFor(out, app)
	for _, id := range ids {
		if _, err := a.tools.output(ctx, a.runner, "mute_input", map[string]string{"id": id}); err != nil {
			return 0, err
		}
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("no audio stream matches %q", app)
	}
	return len(ids), nil
}

// SetDevice switches the default output. Aliases are resolved first.
func (a *Audio) SetDevice(ctx context.Context, device string) (string, error) {
	if device == "" {
		return "", fmt.Errorf("audio device is required")
	}
	if name, ok := a.devices[strings.ToLower(device)]; ok {
		device = name
	}
	_, err := a.tools.output(ctx, a.runner, "audio", map[string]string{"device": device})
	return device, err
}

// Media sends a media key: next, prev, pause or play.
func (a *Audio) Media(ctx context.Context, key string) error {
	_, err := a.tools.output(ctx, a.runner, "media_"+key, nil)
	return err
}

// sinkInputsFor reads `pactl list sink-inputs` output and returns the ids of
// inputs whose application.name contains app, case-insensitively.
func sinkInputsFor(out []byte, app string) []string {
	app = strings.ToLower(app)
	var (
		ids     []string
		current string
	)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if rest, ok := strings.CutPrefix(line, "Sink Input #"); ok {
			current = rest
			continue
		}
		name, ok := strings.CutPrefix(line, "application.name = ")
		if !ok || current == "" {
			continue
		}
		name = strings.ToLower(strings.Trim(name, `"`))
		if strings.Contains(name, app) {
			ids = append(ids, current)
			current = ""
		}
	}
	return ids
}
