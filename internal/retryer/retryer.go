// Package retryer runs operations repeatedly while they fail with a
// goorderr.RetryableError.
package retryer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/simplesurance/mergetrain/internal/goorderr"
	"github.com/simplesurance/mergetrain/internal/logfields"
)

// DefTimeout is the default maximum duration an operation is retried.
const DefTimeout = time.Minute

const (
	defBackoffInitialInterval     = time.Second
	defBackoffRandomizationFactor = 0.5
)

// ErrStopped is returned by Run when the Retryer was stopped.
var ErrStopped = errors.New("retryer stopped")

// Retryer executes a function repeatedly until it was successful, it failed
// with an error that is not retryable, the timeout expired or Stop() was
// called.
type Retryer struct {
	logger *zap.Logger

	defTimeout                 time.Duration
	backoffInitialInterval     time.Duration
	backoffRandomizationFactor float64

	shutdownChan chan struct{}
}

// Option is a functional option for New.
type Option func(*Retryer)

// WithTimeout sets the maximum duration an operation is retried.
func WithTimeout(d time.Duration) Option {
	return func(r *Retryer) {
		r.defTimeout = d
	}
}

func New(opts ...Option) *Retryer {
	r := Retryer{
		logger:                     zap.L().Named("retryer"),
		defTimeout:                 DefTimeout,
		backoffInitialInterval:     defBackoffInitialInterval,
		backoffRandomizationFactor: defBackoffRandomizationFactor,
		shutdownChan:               make(chan struct{}),
	}

	for _, opt := range opts {
		opt(&r)
	}

	return &r
}

func (r *Retryer) newBackoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.backoffInitialInterval
	bo.RandomizationFactor = r.backoffRandomizationFactor
	bo.MaxElapsedTime = 0
	bo.Reset()

	return bo
}

// Run executes fn until it succeeded or returned an error that does not wrap
// a goorderr.RetryableError.
// If the retry timeout or ctx expires, an error wrapping the context error and
// the last error of fn is returned.
func (r *Retryer) Run(ctx context.Context, fn func(context.Context) error, logF []zap.Field) error {
	var tryCnt uint
	var lastErr error

	ctx, cancelFn := context.WithTimeout(ctx, r.defTimeout)
	defer cancelFn()

	bo := r.newBackoff()

	retryTimer := time.NewTimer(0)
	defer retryTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			if lastErr == nil {
				return ctx.Err()
			}

			return fmt.Errorf("%w, last error: %s", ctx.Err(), lastErr)

		case <-r.shutdownChan:
			return ErrStopped

		case <-retryTimer.C:
		}

		tryCnt++
		logger := r.logger.With(logF...).With(zap.Uint("try_count", tryCnt))

		err := fn(ctx)
		if err == nil {
			if tryCnt > 1 {
				logger.Debug(
					"operation succeeded after retries",
					logfields.Event("retry_succeeded"),
				)
			}

			return nil
		}

		var retryErr *goorderr.RetryableError
		if !errors.As(err, &retryErr) {
			return err
		}

		lastErr = err

		var retryIn time.Duration
		if retryErr.After.IsZero() || !retryErr.After.After(time.Now()) {
			retryIn = bo.NextBackOff()
		} else {
			retryIn = time.Until(retryErr.After)
		}

		if deadline, ok := ctx.Deadline(); ok && time.Now().Add(retryIn).After(deadline) {
			logger.Debug(
				"giving up, next retry would be after the timeout expired",
				logfields.Event("retry_timeout"),
				zap.Duration("retry_in", retryIn),
				zap.Error(err),
			)

			return fmt.Errorf("%w, last error: %s", context.DeadlineExceeded, err)
		}

		logger.Debug(
			"operation failed, retry scheduled",
			logfields.Event("retry_scheduled"),
			zap.Duration("retry_in", retryIn),
			zap.Error(err),
		)

		retryTimer.Reset(retryIn)
	}
}

// Stop notifies all Run() invocations to terminate.
// It does not wait for their termination.
func (r *Retryer) Stop() {
	select {
	case <-r.shutdownChan:
		return
	default:
		close(r.shutdownChan)
	}
}
