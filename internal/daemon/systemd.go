package daemon

import (
	"context"
	"fmt"
	"time"

	sddaemon "github.com/coreos/go-systemd/v22/daemon"
)

// sdNotify is swapped in tests.
var (
	sdNotify          = sddaemon.SdNotify
	sdWatchdogEnabled = sddaemon.SdWatchdogEnabled
)

// systemdNotifyLoop reports readiness to systemd and keeps the watchdog
// fed until ctx is done. It returns nil at once when not run under
// systemd or without a watchdog.
func systemdNotifyLoop(ctx context.Context, status string) error {
	supported, err := sdNotify(false, sddaemon.SdNotifyReady)
	if err != nil {
		return fmt.Errorf("notify systemd: %w", err)
	}
	if !supported {
		return nil
	}

	if status != "" {
		_, _ = sdNotify(false, "STATUS="+status)
	}

	t, err := sdWatchdogEnabled(false)
	if err != nil {
		return fmt.Errorf("check watchdog: %w", err)
	}
	if t == 0 {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-time.After(t / 2):
			if _, err := sdNotify(false, sddaemon.SdNotifyWatchdog); err != nil {
				return fmt.Errorf("notify watchdog: %w", err)
			}
		}
	}
}

// systemdStopping tells systemd that shutdown has begun.
func systemdStopping() {
	_, _ = sdNotify(false, sddaemon.SdNotifyStopping)
}
