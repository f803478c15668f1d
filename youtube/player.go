// Package youtube implements the transcript provider against YouTube's
// internal player API and the timedtext caption endpoint.
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	txhttp "transcriptd/http"
	"transcriptd/transcript"
)

const (
	// playerEndpoint is the Innertube API endpoint that reports caption
	// tracks and playability for a video.
	playerEndpoint = "https://www.youtube.com/youtubei/v1/player"

	// defaultClientName identifies us as a web client.
	defaultClientName = "WEB"
	// defaultClientVersion is the client version sent with web requests.
	defaultClientVersion = "2.20240101.00.00"
)

// Client fetches transcripts through the Innertube player API. It
// implements transcript.Provider.
type Client struct {
	httpClient *txhttp.Client
	playerURL  string
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithPlayerURL overrides the player endpoint URL.
func WithPlayerURL(url string) ClientOption {
	return func(c *Client) { c.playerURL = url }
}

// NewClient creates a new Innertube-backed transcript provider.
func NewClient(httpClient *txhttp.Client, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: httpClient,
		playerURL:  playerEndpoint,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// playerRequest is the body sent to the player endpoint.
type playerRequest struct {
	Context clientContext `json:"context"`
	VideoID string        `json:"videoId"`
}

// clientContext identifies the client making the request.
type clientContext struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	HL            string `json:"hl"`
	GL            string `json:"gl"`
}

// playerResponse is the subset of the player response we care about.
type playerResponse struct {
	PlayabilityStatus *playabilityStatus `json:"playabilityStatus,omitempty"`
	Captions          *captions          `json:"captions,omitempty"`
}

type playabilityStatus struct {
	Status string `json:"status,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type captions struct {
	Renderer *captionsRenderer `json:"playerCaptionsTracklistRenderer,omitempty"`
}

type captionsRenderer struct {
	CaptionTracks []captionTrack `json:"captionTracks,omitempty"`
}

type captionTrack struct {
	BaseURL        string    `json:"baseUrl"`
	Name           trackName `json:"name"`
	LanguageCode   string    `json:"languageCode"`
	Kind           string    `json:"kind,omitempty"`
	IsTranslatable bool      `json:"isTranslatable,omitempty"`
}

// trackName is the track's display name, which arrives either as
// simpleText or as a list of runs depending on the client context.
type trackName struct {
	SimpleText string `json:"simpleText,omitempty"`
	Runs       []struct {
		Text string `json:"text"`
	} `json:"runs,omitempty"`
}

func (n trackName) String() string {
	if n.SimpleText != "" {
		return n.SimpleText
	}
	var b strings.Builder
	for _, r := range n.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// ListTracks returns the caption tracks available for a video. Terminal
// video state (unavailable, region blocked, captions disabled) is
// reported through the transcript package's sentinel errors.
func (c *Client) ListTracks(ctx context.Context, videoID string) ([]transcript.Track, error) {
	if videoID == "" {
		return nil, fmt.Errorf("video ID is required")
	}

	resp, err := c.fetchPlayerResponse(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if err := checkPlayability(resp.PlayabilityStatus); err != nil {
		return nil, err
	}

	if resp.Captions == nil || resp.Captions.Renderer == nil {
		return nil, transcript.ErrTranscriptsDisabled
	}

	raw := resp.Captions.Renderer.CaptionTracks
	if len(raw) == 0 {
		return nil, transcript.ErrNoTranscriptAvailable
	}

	tracks := make([]transcript.Track, 0, len(raw))
	for _, t := range raw {
		tracks = append(tracks, transcript.Track{
			Language:       t.Name.String(),
			LanguageCode:   t.LanguageCode,
			IsGenerated:    t.Kind == "asr",
			IsTranslatable: t.IsTranslatable,
			BaseURL:        t.BaseURL,
		})
	}
	return tracks, nil
}

// FetchTrack downloads and parses a single caption track.
func (c *Client) FetchTrack(ctx context.Context, videoID string, track transcript.Track) ([]transcript.Segment, error) {
	if track.BaseURL == "" {
		return nil, fmt.Errorf("track for video %s has no caption URL", videoID)
	}
	return c.fetchTimedtext(ctx, track.BaseURL)
}

func (c *Client) fetchPlayerResponse(ctx context.Context, videoID string) (*playerResponse, error) {
	reqBody := playerRequest{
		Context: clientContext{
			Client: innertubeClient{
				ClientName:    defaultClientName,
				ClientVersion: defaultClientVersion,
				HL:            "en",
				GL:            "US",
			},
		},
		VideoID: videoID,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal player request: %w", err)
	}

	headers := map[string]string{
		"Content-Type": "application/json",
	}

	resp, err := c.httpClient.Do(ctx, "POST", c.playerURL, bytes.NewReader(payload), headers)
	if err != nil {
		return nil, fmt.Errorf("player request for %s: %w", videoID, err)
	}

	var parsed playerResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, fmt.Errorf("parse player response for %s: %w", videoID, err)
	}
	return &parsed, nil
}

// checkPlayability maps the player's playability status onto the
// provider error sentinels. An OK status (or a missing one, which some
// responses omit) means the video is playable.
func checkPlayability(status *playabilityStatus) error {
	if status == nil || status.Status == "" || status.Status == "OK" {
		return nil
	}

	switch status.Status {
	case "ERROR", "LOGIN_REQUIRED":
		return transcript.ErrVideoUnavailable
	case "UNPLAYABLE":
		if strings.Contains(strings.ToLower(status.Reason), "country") {
			return transcript.ErrVideoRegionBlocked
		}
		return transcript.ErrVideoUnavailable
	default:
		return fmt.Errorf("video not playable: %s (%s)", status.Status, status.Reason)
	}
}
