package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/circleci/ex-demos/testing/testcontext"
)

func TestRun_BacksOffWhenThereIsNoWork(t *testing.T) {
	ctx, cancel := context.WithCancel(testcontext.Background())
	defer cancel()

	calls := 0
	waits := 0
	b := &fakeBackOff{}
	Run(ctx, Config{
		Name:          "no-work",
		NoWorkBackOff: b,
		WorkFunc: func(ctx context.Context) error {
			calls++
			if calls == 5 {
				cancel()
			}
			return ErrShouldBackoff
		},
		waiter: func(context.Context, time.Duration) { waits++ },
	})

	assert.Check(t, cmp.Equal(b.nextCalls, 5))
	assert.Check(t, cmp.Equal(waits, 5))
	assert.Check(t, cmp.Equal(b.resetCalls, 1), "reset only once, to initialise")
}

func TestRun_NoWaitAfterWorkOrErrors(t *testing.T) {
	for _, result := range []error{nil, errors.New("mongo went away")} {
		ctx, cancel := context.WithCancel(testcontext.Background())

		calls := 0
		b := &fakeBackOff{}
		Run(ctx, Config{
			NoWorkBackOff: b,
			WorkFunc: func(ctx context.Context) error {
				calls++
				if calls == 3 {
					cancel()
				}
				return result
			},
			waiter: func(context.Context, time.Duration) {
				t.Error("should not wait")
			},
		})
		cancel()

		assert.Check(t, cmp.Equal(b.nextCalls, 0))
		assert.Check(t, cmp.Equal(b.resetCalls, 4))
	}
}

func TestRun_ExitsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(testcontext.Background())

	var calls int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		Run(ctx, Config{
			Name: "busy",
			WorkFunc: func(ctx context.Context) error {
				atomic.AddInt32(&calls, 1)
				time.Sleep(time.Millisecond)
				return nil
			},
		})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not exit after cancel")
	}
	assert.Check(t, atomic.LoadInt32(&calls) > 1)
}

func TestDoWork_RecoversPanics(t *testing.T) {
	cfg := withDefaults(Config{
		WorkFunc: func(ctx context.Context) error {
			panic("oops")
		},
	})
	assert.Check(t, doWork(testcontext.Background(), cfg) < 0)
}

type fakeBackOff struct {
	nextCalls  int
	resetCalls int
}

func (b *fakeBackOff) NextBackOff() time.Duration {
	b.nextCalls++
	return time.Millisecond
}

func (b *fakeBackOff) Reset() {
	b.resetCalls++
}

var _ backoff.BackOff = &fakeBackOff{}
