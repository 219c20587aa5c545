package worker

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/circleci/ex-demos/o11y"
)

// ErrShouldBackoff is returned by a WorkFunc to make the loop wait before the next call.
var ErrShouldBackoff = errors.New("should back off")

type Config struct {
	Name string
	// NoWorkBackOff is consulted after each ErrShouldBackoff, and reset after any other result.
	NoWorkBackOff backoff.BackOff
	// MaxWorkTime bounds each call of WorkFunc, it defaults to a minute.
	MaxWorkTime time.Duration
	WorkFunc    func(ctx context.Context) error

	waiter func(ctx context.Context, delay time.Duration)
}

// Run calls cfg.WorkFunc in a loop until ctx is cancelled.
func Run(ctx context.Context, cfg Config) {
	cfg = withDefaults(cfg)
	cfg.NoWorkBackOff.Reset()

	for ctx.Err() == nil {
		delay := doWork(ctx, cfg)
		if delay < 0 {
			cfg.NoWorkBackOff.Reset()
			continue
		}
		cfg.waiter(ctx, delay)
	}
}

func withDefaults(cfg Config) Config {
	if cfg.waiter == nil {
		cfg.waiter = sleep
	}
	if cfg.NoWorkBackOff == nil {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 50 * time.Millisecond
		b.MaxInterval = 5 * time.Second
		b.MaxElapsedTime = 0
		cfg.NoWorkBackOff = b
	}
	if cfg.MaxWorkTime == 0 {
		cfg.MaxWorkTime = time.Minute
	}
	return cfg
}

func sleep(ctx context.Context, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// doWork runs one iteration, returning how long to wait before the next one,
// or a negative duration to go again straight away.
func doWork(ctx context.Context, cfg Config) (delay time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, cfg.MaxWorkTime)
	defer cancel()

	ctx, span := o11y.StartSpan(ctx, "worker loop: "+cfg.Name)
	span.RecordMetric(o11y.Timing("worker_loop", "loop_name", "result"))
	span.AddField("loop_name", cfg.Name)
	var err error
	defer o11y.End(span, &err)

	// a panicking WorkFunc must not take the whole service down
	defer func() {
		if r := recover(); r != nil {
			err = o11y.HandlePanic(ctx, span, r, nil)
		}
	}()

	delay = -1
	err = cfg.WorkFunc(ctx)
	if errors.Is(err, ErrShouldBackoff) {
		delay = cfg.NoWorkBackOff.NextBackOff()
		err = nil
	}

	span.AddField("backoff_ms", delay.Milliseconds())
	return delay
}
