package clip

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

// Downloader abstracts clip retrieval (for tests/mocks).
type Downloader interface {
	Download(ctx context.Context, url, dest string) error
}

// CmdDownloader shells out to twitch-dl (or a compatible tool) to fetch a clip.
// The context bounds the subprocess; cancellation kills it.
type CmdDownloader struct {
	// Binary overrides the downloader executable. Empty means the
	// CLIP_DOWNLOADER env var, falling back to "twitch-dl".
	Binary string
	// Quality is the requested rendition, e.g. "360".
	Quality string
}

func (d CmdDownloader) binary() string {
	if d.Binary != "" {
		return d.Binary
	}
	if b := os.Getenv("CLIP_DOWNLOADER"); b != "" {
		return b
	}
	return "twitch-dl"
}

func (d CmdDownloader) Download(ctx context.Context, url, dest string) error {
	quality := d.Quality
	if quality == "" {
		quality = "360"
	}
	args := []string{
		"download",
		url,
		"-o", dest,
		"--overwrite",
		"-q", quality,
	}
	slog.Debug("running downloader", slog.String("bin", d.binary()), slog.Any("args", args), slog.String("component", "clip_download"))

	cmd := exec.CommandContext(ctx, d.binary(), args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("downloader %s: %w: %s", d.binary(), err, tail(out.Bytes(), 512))
	}
	return nil
}

// tail returns the last n bytes of b for error detail.
func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(bytes.TrimSpace(b))
}
