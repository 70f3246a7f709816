// Package retryer repeats failed operations with exponential backoff.
package retryer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cenkalti/backoff"

	"github.com/wardenbot/warden/internal/logfields"
	"github.com/wardenbot/warden/internal/wardenerr"
)

const defMaxRetryTimeout = 2 * time.Hour

// Retryer executes a function repeatedly until it was successful or a
// cancel condition happened.
type Retryer struct {
	logger          *zap.Logger
	maxRetryTimeout time.Duration
	shutdownChan    chan struct{}
}

func New() *Retryer {
	return &Retryer{
		logger:          zap.L().Named("retryer"),
		maxRetryTimeout: defMaxRetryTimeout,
		shutdownChan:    make(chan struct{}),
	}
}

// Run executes fn until it was successful, it returned an error that
// does not wrap wardenerr.RetryableError or the execution was aborted
// via the context.
func (r *Retryer) Run(ctx context.Context, fn func(context.Context) error, logF []zap.Field) error {
	var tryCnt uint

	startTime := time.Now()
	endTime := startTime.Add(r.maxRetryTimeout)

	retryTimeout := time.NewTimer(r.maxRetryTimeout)
	defer retryTimeout.Stop()

	retryTimer := time.NewTimer(0)
	defer retryTimer.Stop()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Second

	for {
		tryCnt++
		logger := r.logger.With(logF...).With(zap.Uint("try_count", tryCnt))

		select {
		case <-ctx.Done():
			logger.Info(
				"operation execution cancelled",
				logfields.Event("operation_execution_cancelled"),
				logfields.Outcome("cancelled"),
			)

			return ctx.Err()

		case <-retryTimer.C:
			logger.Debug(
				"running operation",
				logfields.Event("operation_running"),
				zap.Duration("age", bo.GetElapsedTime()),
				zap.Duration("retry_timeout", r.maxRetryTimeout),
			)

			err := fn(ctx)
			if err != nil {
				var retryError *wardenerr.RetryableError

				logger = logger.With(zap.Error(err))

				if errors.Is(err, context.Canceled) {
					logger.Info(
						"operation cancelled",
						logfields.Event("operation_cancelled"),
						logfields.Outcome("cancelled"),
					)

					return err
				}

				if errors.As(err, &retryError) {
					logger = logger.With(
						zap.Duration("age", bo.GetElapsedTime()),
						zap.Duration("retry_timeout", r.maxRetryTimeout),
					)

					if retryError.After.After(endTime) {
						logger.Error(
							"operation failed, next possible retry time is after timeout expiration",
							logfields.Event("operation_failed"),
							zap.Time("earliest_allowed_retry", retryError.After),
						)

						return err
					}

					var retryIn time.Duration

					if retryError.After.IsZero() {
						retryIn = bo.NextBackOff()
					} else {
						retryIn = time.Until(retryError.After)
					}

					retryTimer.Reset(retryIn)
					logger.Warn(
						"operation failed, retry scheduled",
						logfields.Event("operation_retry_scheduled"),
						zap.Duration("retry_in", retryIn),
					)

					continue
				}

				logger.Error(
					"operation failed, not retryable",
					logfields.Event("operation_failed"),
					logfields.Outcome("failure"),
				)

				return err
			}

			logger.Debug(
				"operation executed successfully",
				logfields.Event("operation_executed_successfully"),
				logfields.Outcome("success"),
			)

			return nil

		case <-retryTimeout.C:
			logger.Warn(
				"giving up retrying operation execution, retry timeout expired",
				logfields.Event("operation_retry_timeout"),
				logfields.Outcome("cancelled"),
				zap.Duration("age", bo.GetElapsedTime()),
				zap.Duration("retry_timeout", r.maxRetryTimeout),
			)

			return errors.New("retry timeout expired")

		case <-r.shutdownChan:
			logger.Info(
				"terminating, operation not executed",
				logfields.Event("operation_execution_cancelled_shutdown"),
				logfields.Outcome("cancelled"),
			)

			return nil
		}
	}
}

// Stop notifies all Run() methods to terminate.
// It does not wait for their termination.
func (r *Retryer) Stop() {
	r.logger.Debug("retryer terminating", logfields.Event("retryer_terminating"))

	select {
	case <-r.shutdownChan:
		return // already closed
	default:
		close(r.shutdownChan)
	}
}
