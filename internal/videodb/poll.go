package videodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultMaxWait      = 180 * time.Second
	defaultPollInterval = 10 * time.Second
)

func (o PollOptions) withDefaults() PollOptions {
	if o.MaxWait <= 0 {
		o.MaxWait = defaultMaxWait
	}
	if o.Interval <= 0 {
		o.Interval = defaultPollInterval
	}
	return o
}

// poll calls attempt until it succeeds, fails with an error other than
// ErrNotReady, ctx ends, or MaxWait elapses. The deadline is the earlier of
// now+MaxWait and ctx's deadline; time.Now carries a monotonic reading, so
// wall-clock changes do not stretch it.
func poll(ctx context.Context, opts PollOptions, timeout error, attempt func() error) error {
	opts = opts.withDefaults()
	deadline := time.Now().Add(opts.MaxWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		err := attempt()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNotReady) {
			return err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("%w after %s: %v", timeout, opts.MaxWait, err)
		}
		wait := min(opts.Interval, remaining)
		if timer == nil {
			timer = time.NewTimer(wait)
		} else {
			timer.Reset(wait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// WaitForTranscript polls Transcript until it is available. Zero options come
// from the client's configuration. It returns ErrTranscriptTimeout when the
// budget runs out, the context error when ctx ends, and any other error at once.
// The budget also bounds asynchronous jobs started by a single attempt.
func (c *Client) WaitForTranscript(ctx context.Context, videoID string, opts PollOptions) (string, error) {
	if opts.MaxWait <= 0 {
		opts.MaxWait = c.poll.MaxWait
	}
	if opts.Interval <= 0 {
		opts.Interval = c.poll.Interval
	}
	opts = opts.withDefaults()
	start := time.Now()
	waitCtx, cancel := context.WithDeadline(ctx, start.Add(opts.MaxWait))
	defer cancel()

	attempts := 0
	var transcript string
	err := poll(waitCtx, opts, ErrTranscriptTimeout, func() error {
		attempts++
		t, err := c.Transcript(waitCtx, videoID)
		if err != nil {
			c.logger.Debug("transcript not ready", zap.String("video_id", videoID), zap.Int("attempt", attempts), zap.Error(err))
			return err
		}
		transcript = t
		return nil
	})
	if err != nil && ctx.Err() == nil && !errors.Is(err, ErrTranscriptTimeout) &&
		(errors.Is(err, ErrJobTimeout) || errors.Is(err, context.DeadlineExceeded)) {
		err = fmt.Errorf("%w after %s: %v", ErrTranscriptTimeout, opts.MaxWait, err)
	}
	if err != nil {
		c.logger.Warn("transcript unavailable",
			zap.String("video_id", videoID),
			zap.Int("attempts", attempts),
			zap.Duration("waited", time.Since(start)),
			zap.Error(err))
		return "", err
	}
	c.logger.Info("transcript ready",
		zap.String("video_id", videoID),
		zap.Int("attempts", attempts),
		zap.Int("chars", len([]rune(transcript))))
	return transcript, nil
}
