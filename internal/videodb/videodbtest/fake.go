// Package videodbtest provides an in-memory VideoDB API for tests.
package videodbtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Shot is a search hit served by the fake.
type Shot struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Server is a fake VideoDB API. Every uploaded video gets VideoID and the
// configured transcript. Exported fields may be changed before requests are made.
type Server struct {
	*httptest.Server

	VideoID    string
	Name       string
	Length     float64
	Transcript string
	// TranscriptMissing makes the transcription endpoint report "not found".
	TranscriptMissing bool
	// SceneFailure makes scene indexing fail with a 500.
	SceneFailure bool
	Shots        []Shot

	mu       sync.Mutex
	requests []string
}

// NewServer starts a fake with one video and a short transcript.
func NewServer() *Server {
	s := &Server{
		VideoID:    "m-test",
		Name:       "Test Video",
		Length:     120,
		Transcript: "Welcome to the talk. Today we cover goroutines and channels.",
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Requests returns "METHOD path" for every request served.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)
	s.mu.Unlock()

	if r.Method == http.MethodPost && r.URL.Path == "/storage/upload" {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"url": s.URL + "/storage/" + s.VideoID + ".mp4"})
		return
	}
	if r.Header.Get("x-access-token") == "" {
		fail(w, http.StatusUnauthorized, "missing api key")
		return
	}
	path := r.URL.Path
	video := "/video/" + s.VideoID
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/upload_url"):
		ok(w, map[string]any{"upload_url": s.URL + "/storage/upload"})
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/upload"):
		ok(w, s.video())
	case r.Method == http.MethodGet && path == video:
		ok(w, s.video())
	case r.Method == http.MethodPost && path == video+"/stream":
		ok(w, map[string]any{"stream_url": s.URL + "/stream/" + s.VideoID + ".m3u8"})
	case r.Method == http.MethodPost && path == video+"/index":
		ok(w, map[string]any{})
	case r.Method == http.MethodPost && path == video+"/index/scene":
		if s.SceneFailure {
			fail(w, http.StatusInternalServerError, "scene indexing unavailable")
			return
		}
		ok(w, map[string]any{"scene_index_id": "si-1"})
	case r.Method == http.MethodGet && path == video+"/transcription":
		if s.TranscriptMissing {
			fail(w, http.StatusNotFound, "transcript not found")
			return
		}
		ok(w, map[string]any{"text": s.Transcript})
	case r.Method == http.MethodPost && path == video+"/search":
		ok(w, map[string]any{"results": []map[string]any{{"video_id": s.VideoID, "docs": s.Shots}}})
	case r.Method == http.MethodPost && path == "/compile":
		ok(w, map[string]any{"stream_url": s.URL + "/compiled.m3u8"})
	default:
		fail(w, http.StatusNotFound, "video does not exist")
	}
}

func (s *Server) video() map[string]any {
	return map[string]any{"id": s.VideoID, "name": s.Name, "length": s.Length, "collection_id": "default"}
}

func ok(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func fail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": msg})
}
