package transcript

import (
	"errors"
	"net"
	"net/http"
	"strings"

	txhttp "transcriptd/http"
)

// Code is a machine-readable error code from the closed taxonomy.
type Code string

// The closed set of error codes surfaced to callers.
const (
	CodeTranscriptsDisabled    Code = "TRANSCRIPTS_DISABLED"
	CodeNoTranscriptFound      Code = "NO_TRANSCRIPT_FOUND"
	CodeNoTranscriptAvailable  Code = "NO_TRANSCRIPT_AVAILABLE"
	CodeVideoUnavailable       Code = "VIDEO_UNAVAILABLE"
	CodeVideoRegionBlocked     Code = "VIDEO_REGION_BLOCKED"
	CodeRateLimitExceeded      Code = "RATE_LIMIT_EXCEEDED"
	CodeYouTubeAPIError        Code = "YOUTUBE_API_ERROR"
	CodeNetworkError           Code = "NETWORK_ERROR"
	CodeTransientError         Code = "TRANSIENT_ERROR"
	CodeInternalError          Code = "INTERNAL_ERROR"
)

// Sentinel errors raised by providers for terminal video/transcript state.
var (
	ErrTranscriptsDisabled   = errors.New("transcripts are disabled for this video")
	ErrNoTranscriptFound     = errors.New("no transcript available in requested languages")
	ErrNoTranscriptAvailable = errors.New("no transcript available for this video")
	ErrVideoUnavailable      = errors.New("video is unavailable or does not exist")
	ErrVideoRegionBlocked    = errors.New("video is blocked in your region")
)

// Error is a classified provider failure. It carries everything a
// caller needs to decide what to do next: a code from the closed
// taxonomy, whether retrying could help, and an optional suggested
// delay in seconds.
type Error struct {
	// Code is the machine-readable error code.
	Code Code
	// Message is the human-readable description.
	Message string
	// VideoID identifies the video the failure relates to.
	VideoID string
	// Retryable indicates whether a later retry could succeed.
	Retryable bool
	// RetryAfter is the suggested wait before retrying, in seconds
	// (0 means no suggestion).
	RetryAfter int
	// Err is the underlying provider error.
	Err error
}

// Error returns a string representation of the classified error.
func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Err.Error()
	}
	return string(e.Code) + ": " + e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As.
func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus returns the HTTP status code for this error: 404 for
// terminal business errors, 429 for rate limiting, 503 for transient
// provider trouble, 500 otherwise.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeTranscriptsDisabled, CodeNoTranscriptFound, CodeNoTranscriptAvailable,
		CodeVideoUnavailable, CodeVideoRegionBlocked:
		return http.StatusNotFound
	case CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case CodeYouTubeAPIError, CodeNetworkError, CodeTransientError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message substrings that indicate the provider is rate limiting us.
// The provider does not expose a stable machine-readable taxonomy, so
// string matching on the message is the only signal for some failures;
// it is deliberately confined to this file.
var rateLimitIndicators = []string{
	"too many requests",
	"rate limit",
	"quota exceeded",
	"429",
	"try again later",
	"temporarily unavailable",
}

// Message substrings that indicate a transient network-level failure.
var transientIndicators = []string{
	"timeout",
	"connection",
	"network",
	"temporary",
	"service unavailable",
	"503",
	"502",
	"504",
}

func matchesAny(message string, indicators []string) bool {
	message = strings.ToLower(message)
	for _, indicator := range indicators {
		if strings.Contains(message, indicator) {
			return true
		}
	}
	return false
}

// Classify maps any provider failure onto the error taxonomy. Rules are
// evaluated in a fixed order; the first match wins.
func Classify(videoID string, err error) *Error {
	// Already classified; just make sure the video id is attached.
	var classified *Error
	if errors.As(err, &classified) {
		if classified.VideoID == "" {
			classified.VideoID = videoID
		}
		return classified
	}

	// Terminal video/transcript state.
	switch {
	case errors.Is(err, ErrTranscriptsDisabled):
		return &Error{
			Code:    CodeTranscriptsDisabled,
			Message: "Transcripts are disabled for this video",
			VideoID: videoID,
			Err:     err,
		}
	case errors.Is(err, ErrNoTranscriptFound):
		return &Error{
			Code:    CodeNoTranscriptFound,
			Message: "No transcript available in requested languages",
			VideoID: videoID,
			Err:     err,
		}
	case errors.Is(err, ErrNoTranscriptAvailable):
		return &Error{
			Code:    CodeNoTranscriptAvailable,
			Message: "No transcript available for this video",
			VideoID: videoID,
			Err:     err,
		}
	case errors.Is(err, ErrVideoUnavailable):
		return &Error{
			Code:    CodeVideoUnavailable,
			Message: "Video is unavailable or does not exist",
			VideoID: videoID,
			Err:     err,
		}
	case errors.Is(err, ErrVideoRegionBlocked):
		return &Error{
			Code:    CodeVideoRegionBlocked,
			Message: "Video is blocked in your region",
			VideoID: videoID,
			Err:     err,
		}
	}

	// Rate limiting, whether typed or only recognizable by message.
	var rateLimitErr *txhttp.RateLimitError
	if errors.As(err, &rateLimitErr) || matchesAny(err.Error(), rateLimitIndicators) {
		return &Error{
			Code:       CodeRateLimitExceeded,
			Message:    "YouTube rate limit exceeded. Please try again later.",
			VideoID:    videoID,
			Retryable:  false,
			RetryAfter: 60,
			Err:        err,
		}
	}

	// Other provider request failures.
	var statusErr *txhttp.StatusError
	if errors.As(err, &statusErr) {
		return &Error{
			Code:       CodeYouTubeAPIError,
			Message:    "YouTube API temporarily unavailable",
			VideoID:    videoID,
			Retryable:  true,
			RetryAfter: 30,
			Err:        err,
		}
	}

	// Typed network failures (timeouts, refused connections).
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{
			Code:       CodeNetworkError,
			Message:    "Network timeout or connection error",
			VideoID:    videoID,
			Retryable:  true,
			RetryAfter: 15,
			Err:        err,
		}
	}

	// Transient failures recognizable only by message.
	if matchesAny(err.Error(), transientIndicators) {
		return &Error{
			Code:       CodeTransientError,
			Message:    "Service temporarily unavailable",
			VideoID:    videoID,
			Retryable:  true,
			RetryAfter: 30,
			Err:        err,
		}
	}

	return &Error{
		Code:      CodeInternalError,
		Message:   "Internal server error",
		VideoID:   videoID,
		Retryable: true,
		Err:       err,
	}
}
