package processor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/vidlens/internal/analysis"
	"github.com/hyperjump/vidlens/internal/videodb"
)

type fakeIngester struct {
	uploadErr     error
	streamErr     error
	indexErr      error
	transcript    string
	transcriptErr error
	sceneErr      error

	mu     sync.Mutex
	scenes []string
	req    videodb.UploadRequest
}

func (f *fakeIngester) Upload(ctx context.Context, req videodb.UploadRequest) (*videodb.Video, error) {
	f.req = req
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &videodb.Video{ID: "m-1", Name: "uploaded-name", Length: 93}, nil
}

func (f *fakeIngester) GenerateStream(ctx context.Context, videoID string) (string, error) {
	return "https://stream.example/m-1.m3u8", f.streamErr
}

func (f *fakeIngester) IndexSpokenWords(ctx context.Context, videoID string) error { return f.indexErr }

func (f *fakeIngester) IndexScenes(ctx context.Context, videoID, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scenes = append(f.scenes, prompt)
	return "si-1", f.sceneErr
}

func (f *fakeIngester) WaitForTranscript(ctx context.Context, videoID string, opts videodb.PollOptions) (string, error) {
	return f.transcript, f.transcriptErr
}

type fakeAnalyzer struct {
	err       error
	summary   string
	topics    []string
	summaryOK bool
	topicsOK  bool
	got       string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, transcript, title, description string) (*analysis.Result, error) {
	f.got = transcript
	if f.err != nil {
		return nil, f.err
	}
	return &analysis.Result{Summary: f.summary, Topics: f.topics, KeyQuotes: []string{"q"}, Sentiment: "neutral"}, nil
}

func (f *fakeAnalyzer) Summary(ctx context.Context, transcript, title string) (string, error) {
	if f.summaryOK {
		return "fallback summary", nil
	}
	return "", errors.New("summary failed")
}

func (f *fakeAnalyzer) Topics(ctx context.Context, transcript string) ([]string, error) {
	if f.topicsOK {
		return []string{"fallback topic"}, nil
	}
	return nil, errors.New("topics failed")
}

type fakeIndexer struct {
	err       error
	sessionID string
	title     string
	calls     int
}

func (f *fakeIndexer) IndexTranscript(ctx context.Context, sessionID, transcript, title string) error {
	f.calls++
	f.sessionID, f.title = sessionID, title
	return f.err
}

func TestProcess(t *testing.T) {
	ing := &fakeIngester{transcript: "the transcript"}
	an := &fakeAnalyzer{summary: "S", topics: []string{"a", "b"}}
	ix := &fakeIndexer{}
	store := NewStore()
	p := New(ing, an, store, WithIndexer(ix), WithLogger(zap.NewNop()))

	res, err := p.Process(context.Background(), Input{URL: "https://youtu.be/x", SessionID: "s-1", Description: "d"})
	if err != nil {
		t.Fatal(err)
	}
	if res.VideoID != "m-1" || res.Title != "uploaded-name" || res.Duration != 93 || res.StreamURL != "https://stream.example/m-1.m3u8" {
		t.Errorf("result = %+v", res)
	}
	if res.Transcript != "the transcript" || res.Summary != "S" || len(res.Topics) != 2 || !res.RAGReady {
		t.Errorf("result = %+v", res)
	}
	if len(res.Warnings) != 0 || len(ing.scenes) != 0 {
		t.Errorf("warnings=%v scenes=%v", res.Warnings, ing.scenes)
	}
	if ix.calls != 1 || ix.sessionID != "s-1" || ix.title != "uploaded-name" {
		t.Errorf("indexer = %+v", ix)
	}
	stored, err := p.Get("m-1")
	if err != nil || stored.Summary != "S" {
		t.Errorf("stored=%+v err=%v", stored, err)
	}
	if ing.req.URL != "https://youtu.be/x" || ing.req.Description != "d" {
		t.Errorf("upload request = %+v", ing.req)
	}
}

func TestProcessUploadFailure(t *testing.T) {
	boom := errors.New("bad key")
	p := New(&fakeIngester{uploadErr: boom}, &fakeAnalyzer{}, NewStore())
	if _, err := p.Process(context.Background(), Input{URL: "u"}); !errors.Is(err, boom) {
		t.Errorf("got %v", err)
	}
}

func TestProcessSceneFallback(t *testing.T) {
	tests := []struct {
		name     string
		sceneErr error
		want     string
	}{
		{"scene indexing works", nil, SceneOnlyTranscript},
		{"scene indexing fails", errors.New("no scenes"), NoIndexTranscript},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := &fakeIngester{transcriptErr: videodb.ErrTranscriptTimeout, sceneErr: tt.sceneErr}
			ix := &fakeIndexer{}
			an := &fakeAnalyzer{summary: "S", topics: []string{"a"}}
			res, err := New(ing, an, NewStore(), WithIndexer(ix)).Process(context.Background(), Input{URL: "u", Title: "T"})
			if err != nil {
				t.Fatal(err)
			}
			if res.Transcript != tt.want || an.got != tt.want {
				t.Errorf("transcript = %q", res.Transcript)
			}
			if len(ing.scenes) != 1 || ing.scenes[0] == "" {
				t.Errorf("scene prompts = %v", ing.scenes)
			}
			if ix.calls != 0 || res.RAGReady {
				t.Error("placeholder transcripts must not be indexed")
			}
			if len(res.Warnings) == 0 || !strings.Contains(res.Warnings[0], "transcript unavailable") {
				t.Errorf("warnings = %v", res.Warnings)
			}
			if res.SessionID == "" {
				t.Error("session id should be generated")
			}
		})
	}
}

func TestProcessDegradedAnalysis(t *testing.T) {
	tests := []struct {
		name    string
		an      *fakeAnalyzer
		summary string
		topic   string
	}{
		{"individual calls succeed", &fakeAnalyzer{err: errors.New("x"), summaryOK: true, topicsOK: true}, "fallback summary", "fallback topic"},
		{"everything fails", &fakeAnalyzer{err: errors.New("x")}, analysis.SummaryUnavailable, analysis.DefaultTopic},
		{"no topics returned", &fakeAnalyzer{summary: "S"}, "S", analysis.DefaultTopic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New(&fakeIngester{transcript: "t"}, tt.an, NewStore()).Process(context.Background(), Input{URL: "u"})
			if err != nil {
				t.Fatal(err)
			}
			if res.Summary != tt.summary || len(res.Topics) != 1 || res.Topics[0] != tt.topic {
				t.Errorf("summary=%q topics=%v", res.Summary, res.Topics)
			}
		})
	}
}

func TestProcessRAGFailureIsWarning(t *testing.T) {
	ix := &fakeIndexer{err: errors.New("embedding quota")}
	res, err := New(&fakeIngester{transcript: "t", streamErr: errors.New("no stream")}, &fakeAnalyzer{summary: "S", topics: []string{"a"}}, NewStore(), WithIndexer(ix)).
		Process(context.Background(), Input{URL: "u"})
	if err != nil {
		t.Fatal(err)
	}
	if res.RAGReady || len(res.Warnings) != 2 {
		t.Errorf("rag_ready=%v warnings=%v", res.RAGReady, res.Warnings)
	}
}

func TestStore(t *testing.T) {
	s := NewStore()
	if _, err := s.Get("x"); !errors.Is(err, ErrVideoNotFound) {
		t.Errorf("got %v", err)
	}
	a, _ := New(&fakeIngester{transcript: "t"}, &fakeAnalyzer{summary: "S", topics: []string{"a"}}, s).Process(context.Background(), Input{URL: "u"})
	got, _ := s.Get(a.VideoID)
	got.Summary = "mutated"
	again, _ := s.Get(a.VideoID)
	if again.Summary != "S" {
		t.Error("Get should return a copy")
	}
	if s.Len() != 1 || len(s.List()) != 1 {
		t.Errorf("len = %d", s.Len())
	}
}
