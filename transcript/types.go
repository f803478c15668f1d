// Package transcript defines the transcript domain: segment and track
// types, the classified error taxonomy, and the fetch service that wraps
// the provider with retry logic.
package transcript

// Segment is one timed unit of transcript text. Segments are immutable
// and ordered by chronological appearance in the source video.
type Segment struct {
	// Text is the caption text for this segment.
	Text string `json:"text"`
	// Start is the offset from the beginning of the video, in seconds.
	Start float64 `json:"start"`
	// Duration is how long the segment is displayed, in seconds.
	Duration float64 `json:"duration"`
}

// Result is a fetched transcript. It is constructed per request and
// never persisted.
type Result struct {
	VideoID      string    `json:"video_id"`
	Segments     []Segment `json:"transcript"`
	SegmentCount int       `json:"segment_count"`
}

// Track describes one selectable transcript track for a video.
type Track struct {
	// Language is the human-readable language name (e.g. "English").
	Language string `json:"language"`
	// LanguageCode is the BCP-47 code (e.g. "en", "en-US").
	LanguageCode string `json:"language_code"`
	// IsGenerated is true for auto-generated (ASR) tracks.
	IsGenerated bool `json:"is_generated"`
	// IsTranslatable is true if the provider can translate this track.
	IsTranslatable bool `json:"is_translatable"`

	// BaseURL is the provider URL for fetching this track's segments.
	// It is a provider detail, never serialized to clients.
	BaseURL string `json:"-"`
}
