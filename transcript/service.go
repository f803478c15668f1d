package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"transcriptd/metrics"
	"transcriptd/retry"
)

// TrackLister lists the available transcript tracks for a video.
type TrackLister interface {
	ListTracks(ctx context.Context, videoID string) ([]Track, error)
}

// Provider is the external transcript source. Implementations perform
// the actual network calls; they return the sentinel errors from this
// package for terminal video state and raw transport errors otherwise.
type Provider interface {
	TrackLister

	// FetchTrack fetches the segments of a single track.
	FetchTrack(ctx context.Context, videoID string, track Track) ([]Segment, error)
}

// Service orchestrates transcript fetching: track listing, language
// selection, segment fetch, and retries for transient failures. It
// holds no per-request state; every call is independent.
type Service struct {
	provider    Provider
	lister      TrackLister
	retryConfig retry.Config
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Option configures the service.
type Option func(*Service)

// WithLister overrides the track lister used for the list operation.
// The fetch path always lists through the provider, which knows how to
// fetch the tracks it reports.
func WithLister(l TrackLister) Option {
	return func(s *Service) { s.lister = l }
}

// WithRetryConfig sets custom retry configuration.
func WithRetryConfig(cfg retry.Config) Option {
	return func(s *Service) { s.retryConfig = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a transcript service backed by the given provider.
func NewService(provider Provider, opts ...Option) *Service {
	s := &Service{
		provider:    provider,
		lister:      provider,
		retryConfig: retry.DefaultConfig(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch returns the best-matching transcript for the video: it lists
// the available tracks, selects the first track matching the language
// preference order (exact code match preferred, same-base-language as
// fallback), and fetches that track's segments.
//
// Transient failures are retried up to the configured attempt budget
// with exponential backoff and jitter. Terminal failures (transcripts
// disabled, video unavailable, no matching track) propagate immediately
// without any retry. The returned error is always a classified *Error.
func (s *Service) Fetch(ctx context.Context, videoID string, languages []string) (*Result, error) {
	if videoID == "" {
		return nil, fmt.Errorf("video id is required")
	}
	if len(languages) == 0 {
		languages = []string{"en"}
	}

	start := time.Now()

	cfg := s.retryConfig
	cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		s.metrics.RecordFetchRetry()
		s.logger.Warn("retrying transcript fetch",
			slog.String("video_id", videoID),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
	}

	classifier := func(err error) bool {
		if !retry.IsRetryable(err) {
			return false
		}
		return Classify(videoID, err).Retryable
	}

	var result *Result
	err := retry.Do(ctx, cfg, classifier, func(ctx context.Context) error {
		tracks, err := s.provider.ListTracks(ctx, videoID)
		if err != nil {
			return err
		}
		if len(tracks) == 0 {
			return ErrNoTranscriptAvailable
		}

		track, ok := selectTrack(tracks, languages)
		if !ok {
			return ErrNoTranscriptFound
		}

		segments, err := s.provider.FetchTrack(ctx, videoID, track)
		if err != nil {
			return err
		}

		result = &Result{
			VideoID:      videoID,
			Segments:     segments,
			SegmentCount: len(segments),
		}
		return nil
	})

	if err != nil {
		s.metrics.RecordFetch(time.Since(start).Seconds(), -1)
		return nil, s.classifyAndLog("fetch transcript", videoID, err)
	}

	s.metrics.RecordFetch(time.Since(start).Seconds(), result.SegmentCount)
	s.logger.Info("transcript retrieved",
		slog.String("video_id", videoID),
		slog.Int("segments", result.SegmentCount),
	)
	return result, nil
}

// ListTracks returns the available transcript tracks for a video.
// Listing failures propagate directly without retry; only the fetch
// path retries. The returned error is always a classified *Error.
func (s *Service) ListTracks(ctx context.Context, videoID string) ([]Track, error) {
	if videoID == "" {
		return nil, fmt.Errorf("video id is required")
	}

	s.metrics.RecordList()

	tracks, err := s.lister.ListTracks(ctx, videoID)
	if err != nil {
		return nil, s.classifyAndLog("list tracks", videoID, err)
	}
	return tracks, nil
}

// classifyAndLog classifies a failure, records it, and logs it. Terminal
// business state logs at Warn; everything else at Error; unclassified
// failures include the full underlying error chain.
func (s *Service) classifyAndLog(op, videoID string, err error) *Error {
	classified := Classify(videoID, err)
	s.metrics.RecordClassifiedError(string(classified.Code))

	attrs := []any{
		slog.String("video_id", videoID),
		slog.String("code", string(classified.Code)),
		slog.String("error", err.Error()),
	}

	switch classified.HTTPStatus() {
	case 404:
		s.logger.Warn(op+" failed", attrs...)
	default:
		s.logger.Error(op+" failed", attrs...)
	}
	return classified
}

// selectTrack picks the first track matching the language preference
// order. Exact code matches across the whole preference list win over
// base-language matches ("en" also matches "en-US").
func selectTrack(tracks []Track, languages []string) (Track, bool) {
	for _, lang := range languages {
		for _, t := range tracks {
			if strings.EqualFold(t.LanguageCode, lang) {
				return t, true
			}
		}
	}
	for _, lang := range languages {
		base := baseLanguage(lang)
		for _, t := range tracks {
			if strings.EqualFold(baseLanguage(t.LanguageCode), base) {
				return t, true
			}
		}
	}
	return Track{}, false
}

// baseLanguage strips any region subtag: "en-US" -> "en".
func baseLanguage(code string) string {
	base, _, _ := strings.Cut(code, "-")
	return base
}
