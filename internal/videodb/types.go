package videodb

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Index and search types understood by the service.
const (
	IndexSpokenWord = "spoken_word"
	IndexScene      = "scene"
	SearchSemantic  = "semantic"
	SearchKeyword   = "keyword"
)

// DefaultScenePrompt describes scenes when no prompt is given.
const DefaultScenePrompt = "General video scenes and activities"

// Seconds is a duration in seconds. The service encodes it as a number or a string.
type Seconds float64

// UnmarshalJSON accepts 12.5, "12.5" and null.
func (s *Seconds) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*s = Seconds(f)
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("seconds: %w", err)
	}
	if str == "" {
		*s = 0
		return nil
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return fmt.Errorf("seconds %q: %w", str, err)
	}
	*s = Seconds(f)
	return nil
}

// Video is an uploaded video.
type Video struct {
	ID           string  `json:"id"`
	CollectionID string  `json:"collection_id"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	Length       Seconds `json:"length"`
	StreamURL    string  `json:"stream_url,omitempty"`
	PlayerURL    string  `json:"player_url,omitempty"`
}

// UploadRequest uploads either a remote URL or a local file. Exactly one of URL
// and FilePath must be set.
type UploadRequest struct {
	URL         string
	FilePath    string
	Name        string
	Description string
}

// Shot is one search hit, a time range with its spoken text.
type Shot struct {
	VideoID string  `json:"video_id,omitempty"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}

// SearchResult is the response of a video search.
type SearchResult struct {
	Shots     []Shot
	StreamURL string
}

// SearchOptions controls a video search. Zero values mean semantic search over
// the spoken-word index.
type SearchOptions struct {
	SearchType      string
	IndexType       string
	ResultThreshold int
	ScoreThreshold  float64
}

// PollOptions bounds a wait for an asynchronous result.
type PollOptions struct {
	MaxWait  time.Duration
	Interval time.Duration
}

type envelope struct {
	Success bool            `json:"success"`
	Status  string          `json:"status,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data"`
}

type asyncJob struct {
	OutputURL string `json:"output_url"`
}

type uploadURLResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptResponse struct {
	Text string `json:"text"`
}

type searchResponse struct {
	Results []struct {
		VideoID string `json:"video_id"`
		Docs    []Shot `json:"docs"`
	} `json:"results"`
}

type streamResponse struct {
	StreamURL string `json:"stream_url"`
	PlayerURL string `json:"player_url"`
}

type sceneIndexResponse struct {
	SceneIndexID string `json:"scene_index_id"`
}
