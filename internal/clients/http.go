package clients

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/kij-exe/hypr-ledger/pkg/retrier"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 10
	defaultRetryDelay = 2 * time.Second
	maxRetryDelay     = 30 * time.Second
	// error bodies are truncated to this many bytes
	maxErrorBody = 512
)

// HTTPOptions configure timeouts and retries of the upstream clients.
type HTTPOptions struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

func (o HTTPOptions) withDefaults() HTTPOptions {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = defaultMaxRetries
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = defaultRetryDelay
	}
	return o
}

// StatusError is returned when an upstream answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.Code, e.Body)
}

func newStatusError(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Code: resp.StatusCode, Body: string(body)}
}

// IsRetryable reports whether err is a timeout, a rate limit or a server error.
func IsRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= http.StatusInternalServerError
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

func newRetrier(opts HTTPOptions, l *zap.Logger, upstream string) *retrier.Retrier {
	return retrier.New(
		retrier.WithInitialInterval(opts.RetryDelay),
		retrier.WithMaxInterval(maxRetryDelay),
		retrier.WithMaxRetries(opts.MaxRetries),
		retrier.WithRetryIf(IsRetryable),
		retrier.WithOnRetry(func(attempt int, err error) {
			l.Warn("retrying upstream request",
				zap.String("upstream", upstream),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", opts.MaxRetries),
				zap.Error(err),
			)
		}),
	)
}
