package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"transcriptd/metrics"
	"transcriptd/transcript"
)

// stubService scripts the transcript service behind the server.
type stubService struct {
	result *transcript.Result
	tracks []transcript.Track
	err    error

	gotVideoID   string
	gotLanguages []string
}

func (s *stubService) Fetch(ctx context.Context, videoID string, languages []string) (*transcript.Result, error) {
	s.gotVideoID = videoID
	s.gotLanguages = languages
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubService) ListTracks(ctx context.Context, videoID string) ([]transcript.Track, error) {
	s.gotVideoID = videoID
	if s.err != nil {
		return nil, s.err
	}
	return s.tracks, nil
}

func newTestServer(t *testing.T, svc TranscriptService) *httptest.Server {
	t.Helper()
	m := metrics.NewWith(prometheus.NewRegistry())
	s := New(Config{Port: 7279, ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second}, svc, nil, m)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return resp, body
}

func TestHealth(t *testing.T) {
	// Health must not depend on the provider, so a service that fails
	// everything still reports healthy.
	svc := &stubService{err: &transcript.Error{Code: transcript.CodeYouTubeAPIError}}
	srv := newTestServer(t, svc)

	resp, body := get(t, srv.URL+"/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
	if body["service"] != "transcript-service" {
		t.Errorf("service = %v", body["service"])
	}
}

func TestFetchTranscript(t *testing.T) {
	svc := &stubService{
		result: &transcript.Result{
			VideoID: "dQw4w9WgXcQ",
			Segments: []transcript.Segment{
				{Text: "hello", Start: 0, Duration: 1.5},
				{Text: "world", Start: 1.5, Duration: 2.0},
			},
			SegmentCount: 2,
		},
	}
	srv := newTestServer(t, svc)

	resp, body := get(t, srv.URL+"/transcript/dQw4w9WgXcQ")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("content type = %q", resp.Header.Get("Content-Type"))
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	if body["video_id"] != "dQw4w9WgXcQ" {
		t.Errorf("video_id = %v", body["video_id"])
	}
	if body["segment_count"] != float64(2) {
		t.Errorf("segment_count = %v, want 2", body["segment_count"])
	}
	segments, ok := body["transcript"].([]any)
	if !ok || len(segments) != 2 {
		t.Fatalf("transcript = %v, want 2 segments", body["transcript"])
	}
	first := segments[0].(map[string]any)
	if first["text"] != "hello" || first["start"] != float64(0) || first["duration"] != 1.5 {
		t.Errorf("segment[0] = %v", first)
	}

	if svc.gotVideoID != "dQw4w9WgXcQ" {
		t.Errorf("service got video id %q", svc.gotVideoID)
	}
	if svc.gotLanguages != nil {
		t.Errorf("languages = %v, want nil for default", svc.gotLanguages)
	}
}

func TestFetchTranscriptLanguages(t *testing.T) {
	svc := &stubService{result: &transcript.Result{VideoID: "vid123"}}
	srv := newTestServer(t, svc)

	resp, _ := get(t, srv.URL+"/transcript/vid123?languages=de,%20en-US,")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	want := []string{"de", "en-US"}
	if len(svc.gotLanguages) != len(want) {
		t.Fatalf("languages = %v, want %v", svc.gotLanguages, want)
	}
	for i := range want {
		if svc.gotLanguages[i] != want[i] {
			t.Errorf("languages[%d] = %q, want %q", i, svc.gotLanguages[i], want[i])
		}
	}
}

func TestFetchTranscriptErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *transcript.Error
		wantStatus int
	}{
		{
			name: "transcripts disabled",
			err: &transcript.Error{
				Code:    transcript.CodeTranscriptsDisabled,
				Message: "Transcripts are disabled for this video",
				VideoID: "vid123",
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "rate limited",
			err: &transcript.Error{
				Code:       transcript.CodeRateLimitExceeded,
				Message:    "YouTube rate limit exceeded. Please try again later.",
				VideoID:    "vid123",
				RetryAfter: 60,
			},
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name: "provider down",
			err: &transcript.Error{
				Code:       transcript.CodeYouTubeAPIError,
				Message:    "YouTube API temporarily unavailable",
				VideoID:    "vid123",
				Retryable:  true,
				RetryAfter: 30,
			},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name: "internal",
			err: &transcript.Error{
				Code:    transcript.CodeInternalError,
				Message: "Internal server error",
				VideoID: "vid123",
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &stubService{err: tt.err})

			resp, body := get(t, srv.URL+"/transcript/vid123")
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if body["error"] != tt.err.Message {
				t.Errorf("error = %v, want %q", body["error"], tt.err.Message)
			}
			if body["error_code"] != string(tt.err.Code) {
				t.Errorf("error_code = %v, want %s", body["error_code"], tt.err.Code)
			}
			if body["video_id"] != "vid123" {
				t.Errorf("video_id = %v", body["video_id"])
			}
			if body["is_retryable"] != tt.err.Retryable {
				t.Errorf("is_retryable = %v, want %v", body["is_retryable"], tt.err.Retryable)
			}
			if tt.err.RetryAfter > 0 {
				if body["retry_after"] != float64(tt.err.RetryAfter) {
					t.Errorf("retry_after = %v, want %d", body["retry_after"], tt.err.RetryAfter)
				}
			} else if _, present := body["retry_after"]; present {
				t.Error("retry_after should be omitted when unset")
			}
		})
	}
}

func TestListTranscripts(t *testing.T) {
	svc := &stubService{
		tracks: []transcript.Track{
			{Language: "English", LanguageCode: "en", IsTranslatable: true, BaseURL: "https://example.com/en"},
			{Language: "German (auto-generated)", LanguageCode: "de", IsGenerated: true},
		},
	}
	srv := newTestServer(t, svc)

	resp, body := get(t, srv.URL+"/transcript/list/vid123")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["video_id"] != "vid123" {
		t.Errorf("video_id = %v", body["video_id"])
	}
	tracks, ok := body["available_transcripts"].([]any)
	if !ok || len(tracks) != 2 {
		t.Fatalf("available_transcripts = %v, want 2 tracks", body["available_transcripts"])
	}
	first := tracks[0].(map[string]any)
	if first["language_code"] != "en" || first["is_translatable"] != true {
		t.Errorf("track[0] = %v", first)
	}
	if _, present := first["BaseURL"]; present {
		t.Error("caption URL must not leak into the response")
	}
	second := tracks[1].(map[string]any)
	if second["is_generated"] != true {
		t.Errorf("track[1] = %v", second)
	}
}

func TestListTranscriptsEmpty(t *testing.T) {
	srv := newTestServer(t, &stubService{})

	resp, body := get(t, srv.URL+"/transcript/list/vid123")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	tracks, ok := body["available_transcripts"].([]any)
	if !ok {
		t.Fatalf("available_transcripts = %v, want an array", body["available_transcripts"])
	}
	if len(tracks) != 0 {
		t.Errorf("len(tracks) = %d, want 0", len(tracks))
	}
}

func TestMissingVideoID(t *testing.T) {
	srv := newTestServer(t, &stubService{})

	for _, path := range []string{"/transcript/", "/transcript/list/"} {
		resp, body := get(t, srv.URL+path)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", path, resp.StatusCode)
		}
		if body["error"] == nil {
			t.Errorf("GET %s: missing JSON error body", path)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &stubService{})

	resp, err := http.Post(srv.URL+"/transcript/vid123", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, errors must be JSON", ct)
	}
}

func TestUnknownPath(t *testing.T) {
	srv := newTestServer(t, &stubService{})

	resp, _ := get(t, srv.URL+"/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestRootDocumentation(t *testing.T) {
	srv := newTestServer(t, &stubService{})

	resp, body := get(t, srv.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["service"] != "transcript-service" {
		t.Errorf("service = %v", body["service"])
	}
	if _, ok := body["endpoints"].(map[string]any); !ok {
		t.Errorf("endpoints = %v, want a map", body["endpoints"])
	}
}
