package search

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/vidlens/internal/videodb"
)

type fakeVideoSearcher struct {
	result *videodb.SearchResult
	err    error
	opts   videodb.SearchOptions
	query  string
}

func (f *fakeVideoSearcher) Search(ctx context.Context, videoID, query string, opts videodb.SearchOptions) (*videodb.SearchResult, error) {
	f.opts, f.query = opts, query
	return f.result, f.err
}

func TestSearcher_Search(t *testing.T) {
	fake := &fakeVideoSearcher{result: &videodb.SearchResult{
		StreamURL: "https://stream.example/x.m3u8",
		Shots: []videodb.Shot{
			{Start: 3725, End: 3730.5, Text: " late ", Score: 0.5},
			{Start: 65, End: 70, Text: "early", Score: 0.9},
		},
	}}
	res, err := NewSearcher(fake, nil).Search(context.Background(), "m-1", "  goroutines ")
	if err != nil {
		t.Fatal(err)
	}
	if fake.query != "goroutines" || fake.opts.SearchType != videodb.SearchSemantic || fake.opts.IndexType != videodb.IndexSpokenWord {
		t.Errorf("forwarded query=%q opts=%+v", fake.query, fake.opts)
	}
	if len(res.Shots) != 2 || res.Shots[0].Text != "early" {
		t.Fatalf("shots not sorted by start: %+v", res.Shots)
	}
	if res.Shots[0].StartLabel != "01:05" || res.Shots[0].EndLabel != "01:10" {
		t.Errorf("labels = %s-%s", res.Shots[0].StartLabel, res.Shots[0].EndLabel)
	}
	if res.Shots[1].StartLabel != "01:02:05" || res.Shots[1].Text != "late" {
		t.Errorf("second shot = %+v", res.Shots[1])
	}
	if res.StreamURL != "https://stream.example/x.m3u8" || res.Query != "goroutines" || res.VideoID != "m-1" {
		t.Errorf("response = %+v", res)
	}
}

func TestSearcher_Errors(t *testing.T) {
	if _, err := NewSearcher(&fakeVideoSearcher{}, nil).Search(context.Background(), "m", "  "); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("empty query = %v", err)
	}
	boom := errors.New("boom")
	if _, err := NewSearcher(&fakeVideoSearcher{err: boom}, nil).Search(context.Background(), "m", "q"); !errors.Is(err, boom) {
		t.Errorf("backend error = %v", err)
	}
}

func TestSearcher_NoShots(t *testing.T) {
	res, err := NewSearcher(&fakeVideoSearcher{result: &videodb.SearchResult{}}, nil).Search(context.Background(), "m", "q")
	if err != nil || res.Shots == nil || len(res.Shots) != 0 {
		t.Errorf("res=%+v err=%v", res, err)
	}
}
