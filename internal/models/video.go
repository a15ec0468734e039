// Package models defines core data structures for videos, social posts, quizzes, and RAG sessions.
package models

import "time"

// VideoAnalysis is the result of ingesting and analyzing one video.
// It is created once per video and not modified afterwards.
type VideoAnalysis struct {
	VideoID        string    `json:"video_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Summary        string    `json:"summary"`
	Topics         []string  `json:"topics"`
	KeyQuotes      []string  `json:"key_quotes,omitempty"`
	Sentiment      string    `json:"sentiment,omitempty"`
	TargetAudience string    `json:"target_audience,omitempty"`
	Transcript     string    `json:"transcript"`
	Duration       float64   `json:"duration"`
	StreamURL      string    `json:"stream_url,omitempty"`
	SessionID      string    `json:"session_id,omitempty"`
	RAGReady       bool      `json:"rag_ready"`
	Warnings       []string  `json:"warnings,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Shot is a time-bounded segment of a video returned by semantic search.
type Shot struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Score      float64 `json:"score,omitempty"`
	StartLabel string  `json:"start_label,omitempty"`
	EndLabel   string  `json:"end_label,omitempty"`
}

// TimestampSearch is the response of a timestamp search over one video.
type TimestampSearch struct {
	VideoID   string `json:"video_id"`
	Query     string `json:"query"`
	Shots     []Shot `json:"shots"`
	StreamURL string `json:"stream_url,omitempty"`
}
