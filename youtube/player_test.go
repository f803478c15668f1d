package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	txhttp "transcriptd/http"
	"transcriptd/transcript"
)

func testHTTPClient(t *testing.T) *txhttp.Client {
	t.Helper()
	client := txhttp.New(&txhttp.Config{Timeout: 5 * time.Second})
	t.Cleanup(func() { client.Close() })
	return client
}

func playerJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return data
}

func TestListTracks(t *testing.T) {
	var gotRequest playerRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write(playerJSON(t, map[string]any{
			"playabilityStatus": map[string]any{"status": "OK"},
			"captions": map[string]any{
				"playerCaptionsTracklistRenderer": map[string]any{
					"captionTracks": []map[string]any{
						{
							"baseUrl":        "https://example.com/timedtext?v=abc&lang=en",
							"name":           map[string]any{"simpleText": "English"},
							"languageCode":   "en",
							"isTranslatable": true,
						},
						{
							"baseUrl":      "https://example.com/timedtext?v=abc&lang=de",
							"name":         map[string]any{"runs": []map[string]any{{"text": "German "}, {"text": "(auto-generated)"}}},
							"languageCode": "de",
							"kind":         "asr",
						},
					},
				},
			},
		}))
	}))
	defer srv.Close()

	c := NewClient(testHTTPClient(t), WithPlayerURL(srv.URL))

	tracks, err := c.ListTracks(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("ListTracks() error = %v", err)
	}
	if gotRequest.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("request video id = %q", gotRequest.VideoID)
	}
	if gotRequest.Context.Client.ClientName != "WEB" {
		t.Errorf("client name = %q, want WEB", gotRequest.Context.Client.ClientName)
	}
	if len(tracks) != 2 {
		t.Fatalf("len(tracks) = %d, want 2", len(tracks))
	}

	want := []transcript.Track{
		{
			Language:       "English",
			LanguageCode:   "en",
			IsTranslatable: true,
			BaseURL:        "https://example.com/timedtext?v=abc&lang=en",
		},
		{
			Language:     "German (auto-generated)",
			LanguageCode: "de",
			IsGenerated:  true,
			BaseURL:      "https://example.com/timedtext?v=abc&lang=de",
		},
	}
	for i, w := range want {
		if tracks[i] != w {
			t.Errorf("tracks[%d] = %+v, want %+v", i, tracks[i], w)
		}
	}
}

func TestListTracksPlayability(t *testing.T) {
	tests := []struct {
		name    string
		status  map[string]any
		wantErr error
	}{
		{
			name:    "error status",
			status:  map[string]any{"status": "ERROR", "reason": "Video unavailable"},
			wantErr: transcript.ErrVideoUnavailable,
		},
		{
			name:    "login required",
			status:  map[string]any{"status": "LOGIN_REQUIRED"},
			wantErr: transcript.ErrVideoUnavailable,
		},
		{
			name:    "region blocked",
			status:  map[string]any{"status": "UNPLAYABLE", "reason": "The uploader has not made this video available in your country"},
			wantErr: transcript.ErrVideoRegionBlocked,
		},
		{
			name:    "unplayable other reason",
			status:  map[string]any{"status": "UNPLAYABLE", "reason": "This video is private"},
			wantErr: transcript.ErrVideoUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write(playerJSON(t, map[string]any{"playabilityStatus": tt.status}))
			}))
			defer srv.Close()

			c := NewClient(testHTTPClient(t), WithPlayerURL(srv.URL))
			_, err := c.ListTracks(context.Background(), "vid123")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ListTracks() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestListTracksNoCaptionsRenderer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(playerJSON(t, map[string]any{
			"playabilityStatus": map[string]any{"status": "OK"},
		}))
	}))
	defer srv.Close()

	c := NewClient(testHTTPClient(t), WithPlayerURL(srv.URL))
	_, err := c.ListTracks(context.Background(), "vid123")
	if !errors.Is(err, transcript.ErrTranscriptsDisabled) {
		t.Errorf("ListTracks() error = %v, want %v", err, transcript.ErrTranscriptsDisabled)
	}
}

func TestListTracksEmptyTrackList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(playerJSON(t, map[string]any{
			"playabilityStatus": map[string]any{"status": "OK"},
			"captions": map[string]any{
				"playerCaptionsTracklistRenderer": map[string]any{},
			},
		}))
	}))
	defer srv.Close()

	c := NewClient(testHTTPClient(t), WithPlayerURL(srv.URL))
	_, err := c.ListTracks(context.Background(), "vid123")
	if !errors.Is(err, transcript.ErrNoTranscriptAvailable) {
		t.Errorf("ListTracks() error = %v, want %v", err, transcript.ErrNoTranscriptAvailable)
	}
}

func TestListTracksEmptyVideoID(t *testing.T) {
	c := NewClient(testHTTPClient(t))
	if _, err := c.ListTracks(context.Background(), ""); err == nil {
		t.Fatal("ListTracks() should reject an empty video id")
	}
}

func TestListTracksServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(testHTTPClient(t), WithPlayerURL(srv.URL))
	_, err := c.ListTracks(context.Background(), "vid123")
	var statusErr *txhttp.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("ListTracks() error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != 500 {
		t.Errorf("status = %d, want 500", statusErr.StatusCode)
	}
}

func TestFetchTrack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("fmt"); got != "json3" {
			t.Errorf("fmt = %q, want json3", got)
		}
		if got := r.URL.Query().Get("lang"); got != "en" {
			t.Errorf("lang = %q, want en", got)
		}
		w.Write([]byte(`{"events":[
			{"tStartMs":0,"dDurationMs":1500,"segs":[{"utf8":"hello "},{"utf8":"world"}]},
			{"tStartMs":1500,"dDurationMs":2000},
			{"tStartMs":3500,"dDurationMs":1000,"segs":[{"utf8":"goodbye"}]}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(testHTTPClient(t))
	track := transcript.Track{LanguageCode: "en", BaseURL: srv.URL + "/timedtext?lang=en"}

	segments, err := c.FetchTrack(context.Background(), "vid123", track)
	if err != nil {
		t.Fatalf("FetchTrack() error = %v", err)
	}
	want := []transcript.Segment{
		{Text: "hello world", Start: 0, Duration: 1.5},
		{Text: "goodbye", Start: 3.5, Duration: 1.0},
	}
	if len(segments) != len(want) {
		t.Fatalf("len(segments) = %d, want %d", len(segments), len(want))
	}
	for i, w := range want {
		if segments[i] != w {
			t.Errorf("segments[%d] = %+v, want %+v", i, segments[i], w)
		}
	}
}

func TestFetchTrackMissingURL(t *testing.T) {
	c := NewClient(testHTTPClient(t))
	_, err := c.FetchTrack(context.Background(), "vid123", transcript.Track{LanguageCode: "en"})
	if err == nil {
		t.Fatal("FetchTrack() should reject a track without a caption URL")
	}
}
