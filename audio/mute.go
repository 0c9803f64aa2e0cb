// Package audio mutes and unmutes other applications' audio sessions through
// an external volume-control tool. Everything here is fire-and-forget: the
// overlay must keep working even when the tool is missing or fails, so errors
// are logged and swallowed.
package audio

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
)

// Muter mutes a fixed list of applications by process name.
type Muter struct {
	// Apps are process names to mute, e.g. "firefox.exe".
	Apps []string
	// Binary overrides the volume tool. Empty means the AUDIO_MUTE_BIN env
	// var, falling back to "svcl" (NirSoft SoundVolumeView CLI).
	Binary string
}

func (m *Muter) binary() string {
	if m.Binary != "" {
		return m.Binary
	}
	if b := os.Getenv("AUDIO_MUTE_BIN"); b != "" {
		return b
	}
	return "svcl"
}

// muteArgs builds the tool invocation for one app.
func muteArgs(mute bool, app string) []string {
	verb := "/Unmute"
	if mute {
		verb = "/Mute"
	}
	return []string{verb, app}
}

// SetMuted mutes or unmutes every configured app, best effort. Per-app
// failures are logged and do not stop the remaining apps.
func (m *Muter) SetMuted(ctx context.Context, mute bool) {
	if len(m.Apps) == 0 {
		return
	}
	for _, app := range m.Apps {
		args := muteArgs(mute, app)
		if err := exec.CommandContext(ctx, m.binary(), args...).Run(); err != nil {
			slog.Warn("audio mute tool failed",
				slog.String("app", app),
				slog.Bool("mute", mute),
				slog.Any("err", err),
				slog.String("component", "audio"))
			continue
		}
		slog.Debug("audio session updated", slog.String("app", app), slog.Bool("mute", mute), slog.String("component", "audio"))
	}
}
