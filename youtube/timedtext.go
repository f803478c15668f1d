package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"transcriptd/transcript"
)

// timedtextResponse is the json3 caption document served from a
// track's baseUrl.
type timedtextResponse struct {
	Events []timedtextEvent `json:"events"`
}

// timedtextEvent is a single timed caption event. Events without segs
// are window styling or positioning records and carry no text.
type timedtextEvent struct {
	StartMs    int64          `json:"tStartMs"`
	DurationMs int64          `json:"dDurationMs"`
	Segs       []timedtextSeg `json:"segs,omitempty"`
}

type timedtextSeg struct {
	UTF8 string `json:"utf8"`
}

// fetchTimedtext downloads a caption track in json3 format and parses
// it into ordered segments.
func (c *Client) fetchTimedtext(ctx context.Context, baseURL string) ([]transcript.Segment, error) {
	trackURL, err := timedtextURL(baseURL)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Get(ctx, trackURL)
	if err != nil {
		return nil, fmt.Errorf("timedtext request: %w", err)
	}

	segments, err := parseTimedtext(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse timedtext response: %w", err)
	}
	return segments, nil
}

// timedtextURL forces the json3 caption format on a track URL.
func timedtextURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse caption URL: %w", err)
	}
	q := u.Query()
	q.Set("fmt", "json3")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// parseTimedtext converts a json3 document into segments. Timestamps
// arrive in milliseconds and are converted to seconds. Events without
// text are skipped; event order is preserved.
func parseTimedtext(data []byte) ([]transcript.Segment, error) {
	var resp timedtextResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal timedtext JSON: %w", err)
	}

	var segments []transcript.Segment
	for _, event := range resp.Events {
		if len(event.Segs) == 0 {
			continue
		}

		var text strings.Builder
		for _, seg := range event.Segs {
			text.WriteString(seg.UTF8)
		}
		if strings.TrimSpace(text.String()) == "" {
			continue
		}

		segments = append(segments, transcript.Segment{
			Text:     text.String(),
			Start:    float64(event.StartMs) / 1000.0,
			Duration: float64(event.DurationMs) / 1000.0,
		})
	}

	return segments, nil
}
