package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/hyperjump/vidlens/internal/metrics"
)

// Resilient decorates a Completer with retries and metrics.
type Resilient struct {
	next    Completer
	policy  retrypolicy.RetryPolicy[string]
	metrics *metrics.Metrics
}

// RetryConfig controls the backoff applied to transient provider failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// NewResilient wraps next. Retries are attempted only for retryable errors.
func NewResilient(next Completer, cfg RetryConfig, m *metrics.Metrics, logger *zap.Logger) *Resilient {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = 8 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	builder := retrypolicy.NewBuilder[string]().
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(_ string, err error) bool { return IsRetryable(err) }).
		ReturnLastFailure()
	if logger != nil {
		builder = builder.OnRetry(func(e failsafe.ExecutionEvent[string]) {
			logger.Debug("retrying llm call",
				zap.String("provider", next.Name()),
				zap.Int("attempt", e.Attempts()),
				zap.Error(e.LastError()))
		})
	}
	return &Resilient{next: next, policy: builder.Build(), metrics: m}
}

// Name returns the wrapped provider's name.
func (r *Resilient) Name() string { return r.next.Name() }

// Complete runs the wrapped completer under the retry policy.
func (r *Resilient) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	out, err := failsafe.With[string](r.policy).WithContext(ctx).Get(func() (string, error) {
		return r.next.Complete(ctx, req)
	})
	r.metrics.ObserveLLM(r.next.Name(), "completion", time.Since(start), err)
	return out, err
}

// IsRetryable reports whether err is a transient provider or network failure.
// Context cancellation and client errors (auth, bad request) are not retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrEmptyResponse) {
		return true
	}
	var gerr genai.APIError
	if errors.As(err, &gerr) {
		return IsRetryableStatus(gerr.Code)
	}
	var gperr *genai.APIError
	if errors.As(err, &gperr) {
		return IsRetryableStatus(gperr.Code)
	}
	var oerr *openai.APIError
	if errors.As(err, &oerr) {
		return IsRetryableStatus(oerr.HTTPStatusCode)
	}
	var rerr *openai.RequestError
	if errors.As(err, &rerr) {
		return IsRetryableStatus(rerr.HTTPStatusCode)
	}
	return true
}

// IsRetryableStatus reports whether an HTTP status is worth retrying (408, 429, 5xx).
func IsRetryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}
