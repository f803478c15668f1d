package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"

	"transcriptd/transcript"
)

// APILister lists caption tracks through the YouTube Data API v3. The
// Data API reports track metadata reliably but caption download needs
// OAuth, so it only serves the listing side; fetching stays on the
// player provider.
//
// When the API call fails (quota exhaustion, key restrictions) the
// lister falls back to the configured fallback lister.
type APILister struct {
	service  *youtubeapi.Service
	logger   *slog.Logger
	fallback transcript.TrackLister

	mu             sync.Mutex
	quotaExhausted bool
}

// NewAPILister creates a Data API caption lister. The fallback lister
// is used when the API cannot serve a request; it may be nil.
func NewAPILister(ctx context.Context, apiKey string, fallback transcript.TrackLister, logger *slog.Logger) (*APILister, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	service, err := youtubeapi.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	return &APILister{
		service:  service,
		logger:   logger,
		fallback: fallback,
	}, nil
}

// ListTracks lists the caption tracks for a video via captions.list.
func (a *APILister) ListTracks(ctx context.Context, videoID string) ([]transcript.Track, error) {
	a.mu.Lock()
	exhausted := a.quotaExhausted
	a.mu.Unlock()

	if exhausted && a.fallback != nil {
		return a.fallback.ListTracks(ctx, videoID)
	}

	resp, err := a.service.Captions.List([]string{"snippet"}, videoID).Context(ctx).Do()
	if err != nil {
		if isQuotaError(err) {
			a.mu.Lock()
			a.quotaExhausted = true
			a.mu.Unlock()
			a.logger.Warn("data api quota exhausted",
				slog.String("video_id", videoID),
			)
		}
		if a.fallback != nil {
			a.logger.Warn("data api listing failed, using fallback",
				slog.String("video_id", videoID),
				slog.String("error", err.Error()),
			)
			return a.fallback.ListTracks(ctx, videoID)
		}
		return nil, fmt.Errorf("captions list for %s: %w", videoID, err)
	}

	if len(resp.Items) == 0 {
		return nil, transcript.ErrNoTranscriptAvailable
	}

	tracks := make([]transcript.Track, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Snippet == nil {
			continue
		}
		tracks = append(tracks, transcript.Track{
			Language:     item.Snippet.Name,
			LanguageCode: item.Snippet.Language,
			IsGenerated:  item.Snippet.TrackKind == "asr",
		})
	}
	return tracks, nil
}

// isQuotaError reports whether a Data API failure is a daily quota or
// rate limit rejection.
func isQuotaError(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code != 403 && apiErr.Code != 429 {
		return false
	}
	for _, e := range apiErr.Errors {
		switch e.Reason {
		case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded", "userRateLimitExceeded":
			return true
		}
	}
	return apiErr.Code == 429
}
