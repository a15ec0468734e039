package videodb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func TestWaitForTranscript(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			fail(w, http.StatusNotFound, "Transcript not found")
			return
		}
		ok(w, map[string]any{"text": "hello world"})
	}))
	text, err := c.WaitForTranscript(context.Background(), "m-1", PollOptions{MaxWait: time.Second, Interval: time.Millisecond})
	if err != nil || text != "hello world" {
		t.Fatalf("text=%q err=%v", text, err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d", calls.Load())
	}
}

func TestWaitForTranscriptTimeout(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fail(w, http.StatusNotFound, "video is processing")
	}))
	start := time.Now()
	_, err := c.WaitForTranscript(context.Background(), "m-1", PollOptions{MaxWait: 50 * time.Millisecond, Interval: 5 * time.Millisecond})
	if !errors.Is(err, ErrTranscriptTimeout) {
		t.Fatalf("got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took %s", elapsed)
	}
}

func TestWaitForTranscriptBoundsAsyncJob(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "processing", "data": map[string]any{"output_url": "/async/transcript-job"}})
	}))
	start := time.Now()
	_, err := c.WaitForTranscript(context.Background(), "m-1", PollOptions{MaxWait: 200 * time.Millisecond, Interval: 5 * time.Millisecond})
	if !errors.Is(err, ErrTranscriptTimeout) {
		t.Fatalf("got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("wait took %s, budget was 200ms", elapsed)
	}
}

func TestWaitForTranscriptStopsOnOtherErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fail(w, http.StatusForbidden, "forbidden")
	}))
	_, err := c.WaitForTranscript(context.Background(), "m-1", PollOptions{MaxWait: time.Second, Interval: time.Millisecond})
	if err == nil || errors.Is(err, ErrNotReady) || errors.Is(err, ErrTranscriptTimeout) {
		t.Fatalf("got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d", calls.Load())
	}
}

func TestWaitForTranscriptCancel(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fail(w, http.StatusNotFound, "not found")
	}))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := c.WaitForTranscript(ctx, "m-1", PollOptions{MaxWait: time.Minute, Interval: 5 * time.Millisecond})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v", err)
	}
}

func TestPollUsesEarlierContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := poll(ctx, PollOptions{MaxWait: time.Hour, Interval: time.Hour}, ErrTranscriptTimeout, func() error { return ErrNotReady })
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, ErrTranscriptTimeout) && !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("poll ignored the context deadline")
	}
}
