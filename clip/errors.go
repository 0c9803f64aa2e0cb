package clip

import (
	"fmt"
	"strings"
)

// Kind identifies which acquisition step failed.
type Kind int

const (
	// KindChannelNotFound: the catalog lookup reported no broadcaster for the channel.
	KindChannelNotFound Kind = iota
	// KindNoClipsAvailable: the broadcaster exists but has an empty clip set.
	KindNoClipsAvailable
	// KindDownloadFailed: the downloader exited non-zero or produced no artifact.
	KindDownloadFailed
	// KindCatalogUnavailable: the catalog lookup itself failed (network, auth, 5xx).
	KindCatalogUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindChannelNotFound:
		return "channel_not_found"
	case KindNoClipsAvailable:
		return "no_clips_available"
	case KindDownloadFailed:
		return "download_failed"
	case KindCatalogUnavailable:
		return "catalog_unavailable"
	default:
		return "unknown"
	}
}

// AcquisitionError wraps a failed acquisition with the step that failed.
// Chat only ever sees a generic message; full detail stays in logs.
type AcquisitionError struct {
	Kind    Kind
	Channel string
	Err     error
}

func (e *AcquisitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("acquire clip for %s: %s: %v", e.Channel, e.Kind, e.Err)
	}
	return fmt.Sprintf("acquire clip for %s: %s", e.Channel, e.Kind)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// ErrorClass represents whether a download error is transient or permanent.
type ErrorClass int

const (
	ErrorClassRetryable ErrorClass = iota
	ErrorClassFatal
)

func (ec ErrorClass) String() string {
	if ec == ErrorClassFatal {
		return "fatal"
	}
	return "retryable"
}

// ClassifyDownloadError sorts downloader failures into retryable vs fatal
// categories for logging. The play path never auto-retries (a viewer simply
// triggers the command again after cooldown), so this is observability only.
func ClassifyDownloadError(err error) ErrorClass {
	if err == nil {
		return ErrorClassRetryable
	}
	lower := strings.ToLower(err.Error())

	// Server errors first, before the generic not-found patterns
	for _, p := range []string{"500", "502", "503", "504", "internal server error", "bad gateway", "service unavailable", "gateway timeout"} {
		if strings.Contains(lower, p) {
			return ErrorClassRetryable
		}
	}

	fatal := []string{
		"401", "403", "access denied", "unauthorized", "login required",
		"404", "not found", "deleted", "no longer available", "does not exist",
		"invalid url", "malformed url", "unsupported url",
		"drm protected", "protected content",
	}
	for _, p := range fatal {
		if strings.Contains(lower, p) {
			return ErrorClassFatal
		}
	}

	// Network issues, rate limiting, incomplete downloads and anything
	// unrecognized default to retryable so logs don't cry wolf.
	return ErrorClassRetryable
}
