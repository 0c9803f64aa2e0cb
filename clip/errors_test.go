package clip

import (
	"errors"
	"testing"
)

func TestClassifyDownloadError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassRetryable},
		{"server error", errors.New("HTTP 503 service unavailable"), ErrorClassRetryable},
		{"gateway timeout", errors.New("504 gateway timeout"), ErrorClassRetryable},
		{"auth", errors.New("401 unauthorized"), ErrorClassFatal},
		{"forbidden", errors.New("access denied (403)"), ErrorClassFatal},
		{"gone", errors.New("clip not found"), ErrorClassFatal},
		{"bad url", errors.New("unsupported URL: ftp://x"), ErrorClassFatal},
		{"drm", errors.New("content is DRM protected"), ErrorClassFatal},
		{"network", errors.New("connection reset by peer"), ErrorClassRetryable},
		{"unknown", errors.New("something odd happened"), ErrorClassRetryable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyDownloadError(tt.err); got != tt.want {
				t.Errorf("ClassifyDownloadError(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	pairs := map[Kind]string{
		KindChannelNotFound:    "channel_not_found",
		KindNoClipsAvailable:   "no_clips_available",
		KindDownloadFailed:     "download_failed",
		KindCatalogUnavailable: "catalog_unavailable",
		Kind(99):               "unknown",
	}
	for k, want := range pairs {
		if k.String() != want {
			t.Errorf("Kind(%d).String() = %s, want %s", k, k.String(), want)
		}
	}
}
