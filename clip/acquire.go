// Package clip implements the clip acquisition pipeline: invalidate the cache
// slot, resolve the channel through the Twitch catalog, pick one clip at
// random, download it with an external tool, and verify the artifact.
//
// Acquisitions are single-flight: one mutex is held for the whole Acquire
// call, so the delete step of a new request always happens after the previous
// request's write. That serialization is the preemption mechanism; in-flight
// downloads are never cancelled, their results are simply overwritten.
package clip

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/clip-roulette/backend/telemetry"
	"github.com/onnwee/clip-roulette/backend/twitchapi"
)

// CacheFileName is the canonical on-disk slot for the current clip.
// The overlay page always loads this path; it is never versioned.
const CacheFileName = "cached_clip.mp4"

// Catalog abstracts the Twitch Helix lookups (for tests/mocks).
type Catalog interface {
	GetUserID(ctx context.Context, login string) (string, error)
	ListClips(ctx context.Context, broadcasterID string, first int) ([]twitchapi.Clip, error)
}

// Fetcher acquires clips into the canonical cache slot.
type Fetcher struct {
	mu         sync.Mutex
	catalog    Catalog
	downloader Downloader
	dataDir    string
	timeout    time.Duration

	// pickIndex selects a clip from a non-empty set; overridable in tests.
	pickIndex func(n int) int
}

// NewFetcher builds a Fetcher. timeout bounds each whole Acquire call
// (the downloader is an uncontrolled external process).
func NewFetcher(catalog Catalog, downloader Downloader, dataDir string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		catalog:    catalog,
		downloader: downloader,
		dataDir:    dataDir,
		timeout:    timeout,
		pickIndex:  rand.Intn,
	}
}

// CachePath returns the canonical clip artifact path.
func (f *Fetcher) CachePath() string {
	return filepath.Join(f.dataDir, CacheFileName)
}

// Acquire resolves channel to a broadcaster, picks one clip uniformly at
// random, downloads it into the canonical slot and returns its path.
// Failures are *AcquisitionError. Concurrent callers are serialized.
func (f *Fetcher) Acquire(ctx context.Context, channel string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	ctx, span := telemetry.StartSpan(ctx, "clip", "acquire_clip", attribute.String("channel", channel))
	defer span.End()

	telemetry.AcquisitionsStarted.Inc()
	var (
		path string
		err  error
	)
	telemetry.TimeFunc(telemetry.AcquireDuration, func() {
		path, err = f.acquire(ctx, channel)
	})
	if err != nil {
		telemetry.AcquisitionsFailed.Inc()
		telemetry.RecordError(span, err)
		return "", err
	}
	telemetry.AcquisitionsSucceeded.Inc()
	telemetry.SetSpanSuccess(span)
	return path, nil
}

func (f *Fetcher) acquire(ctx context.Context, channel string) (string, error) {
	logger := slog.Default().With(slog.String("channel", channel), slog.String("component", "clip_acquire"))
	dest := f.CachePath()

	// Clear the slot first so a stale artifact can never be served as the
	// new request's clip. Absence is not an error.
	if err := f.invalidate(dest); err != nil {
		return "", &AcquisitionError{Kind: KindDownloadFailed, Channel: channel, Err: err}
	}

	broadcasterID, err := f.catalog.GetUserID(ctx, channel)
	if err != nil {
		if err == twitchapi.ErrUserNotFound {
			return "", &AcquisitionError{Kind: KindChannelNotFound, Channel: channel, Err: err}
		}
		return "", &AcquisitionError{Kind: KindCatalogUnavailable, Channel: channel, Err: err}
	}

	clips, err := f.catalog.ListClips(ctx, broadcasterID, 100)
	if err != nil {
		return "", &AcquisitionError{Kind: KindCatalogUnavailable, Channel: channel, Err: err}
	}
	if len(clips) == 0 {
		return "", &AcquisitionError{Kind: KindNoClipsAvailable, Channel: channel}
	}

	picked := clips[f.pickIndex(len(clips))]
	logger.Debug("selected clip", slog.String("clip_id", picked.ID), slog.String("title", picked.Title))

	if err := f.downloader.Download(ctx, picked.URL, dest); err != nil {
		logger.Warn("clip download failed",
			slog.Any("err", err),
			slog.String("class", ClassifyDownloadError(err).String()))
		return "", &AcquisitionError{Kind: KindDownloadFailed, Channel: channel, Err: err}
	}

	// The tool reporting success without producing the file is still a failure.
	if _, err := os.Stat(dest); err != nil {
		return "", &AcquisitionError{Kind: KindDownloadFailed, Channel: channel, Err: fmt.Errorf("artifact missing after download: %w", err)}
	}

	logger.Info("clip acquired", slog.String("path", dest))
	return dest, nil
}

// invalidate removes the canonical artifact and any partial temp sibling.
func (f *Fetcher) invalidate(dest string) error {
	for _, p := range []string{dest, dest + ".tmp"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("invalidate %s: %w", p, err)
		}
	}
	return nil
}
