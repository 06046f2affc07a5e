package paymentpoller

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MinhChien3980/foodease-backend/services/paymentgateway"
)

func TestPollerResolvesOnTerminalStatus(t *testing.T) {
	poller := New(5*time.Millisecond, time.Second)

	var fetches int32
	resolved := make(chan paymentgateway.Outcome, 1)

	err := poller.Start(context.TODO(), "run-1",
		func(c context.Context) (paymentgateway.Outcome, error) {
			if atomic.AddInt32(&fetches, 1) < 3 {
				return paymentgateway.Outcome{Status: paymentgateway.OutcomePending}, nil
			}
			return paymentgateway.Succeeded("txn-1"), nil
		},
		func(c context.Context, outcome paymentgateway.Outcome) {
			resolved <- outcome
		})
	assert.NoError(t, err)

	select {
	case outcome := <-resolved:
		assert.Equal(t, paymentgateway.OutcomeSucceeded, outcome.Status)
		assert.Equal(t, "txn-1", outcome.ExternalTxnUID)
	case <-time.After(time.Second):
		t.Fatal("poller did not resolve in time")
	}

	assert.GreaterOrEqual(t, atomic.LoadInt32(&fetches), int32(3))
	assert.False(t, poller.IsActive("run-1"))
}

func TestPollerResolvesAtMostOnce(t *testing.T) {
	poller := New(time.Millisecond, time.Second)

	var resolves int32
	done := make(chan struct{}, 1)

	err := poller.Start(context.TODO(), "run-1",
		func(c context.Context) (paymentgateway.Outcome, error) {
			return paymentgateway.Succeeded("txn-1"), nil
		},
		func(c context.Context, outcome paymentgateway.Outcome) {
			atomic.AddInt32(&resolves, 1)
			done <- struct{}{}
		})
	assert.NoError(t, err)

	<-done
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&resolves))
}

func TestPollerTimesOut(t *testing.T) {
	poller := New(time.Millisecond, 20*time.Millisecond)

	resolved := make(chan paymentgateway.Outcome, 1)

	err := poller.Start(context.TODO(), "run-1",
		func(c context.Context) (paymentgateway.Outcome, error) {
			return paymentgateway.Outcome{Status: paymentgateway.OutcomePending}, nil
		},
		func(c context.Context, outcome paymentgateway.Outcome) {
			resolved <- outcome
		})
	assert.NoError(t, err)

	select {
	case outcome := <-resolved:
		assert.Equal(t, paymentgateway.OutcomeTimedOut, outcome.Status)
	case <-time.After(time.Second):
		t.Fatal("poller did not time out")
	}
}

func TestStoppedPollerDoesNotResolve(t *testing.T) {
	poller := New(10*time.Millisecond, time.Second)

	var resolves int32

	err := poller.Start(context.TODO(), "run-1",
		func(c context.Context) (paymentgateway.Outcome, error) {
			return paymentgateway.Succeeded("txn-1"), nil
		},
		func(c context.Context, outcome paymentgateway.Outcome) {
			atomic.AddInt32(&resolves, 1)
		})
	assert.NoError(t, err)

	poller.Stop("run-1")
	assert.False(t, poller.IsActive("run-1"))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&resolves))
}

func TestPollerRejectsDuplicateStart(t *testing.T) {
	poller := New(time.Hour, time.Hour)
	defer poller.Stop("run-1")

	fetch := func(c context.Context) (paymentgateway.Outcome, error) {
		return paymentgateway.Outcome{Status: paymentgateway.OutcomePending}, nil
	}
	resolve := func(c context.Context, outcome paymentgateway.Outcome) {}

	assert.NoError(t, poller.Start(context.TODO(), "run-1", fetch, resolve))
	assert.Error(t, poller.Start(context.TODO(), "run-1", fetch, resolve))
	assert.True(t, poller.IsActive("run-1"))
}

func TestPollerResolvesOnLiveContext(t *testing.T) {
	poller := New(time.Millisecond, time.Second)

	resolved := make(chan error, 1)

	err := poller.Start(context.TODO(), "run-1",
		func(c context.Context) (paymentgateway.Outcome, error) {
			return paymentgateway.Succeeded("txn-1"), nil
		},
		func(c context.Context, outcome paymentgateway.Outcome) {
			// The outcome is handed to stores and publishers downstream, so
			// the context must not be cancelled yet.
			resolved <- c.Err()
		})
	assert.NoError(t, err)

	select {
	case ctxErr := <-resolved:
		assert.NoError(t, ctxErr)
	case <-time.After(time.Second):
		t.Fatal("poller did not resolve in time")
	}
}

func TestPollerTimesOutOnLiveContext(t *testing.T) {
	poller := New(time.Millisecond, 20*time.Millisecond)

	resolved := make(chan error, 1)

	err := poller.Start(context.TODO(), "run-1",
		func(c context.Context) (paymentgateway.Outcome, error) {
			return paymentgateway.Outcome{Status: paymentgateway.OutcomePending}, nil
		},
		func(c context.Context, outcome paymentgateway.Outcome) {
			resolved <- c.Err()
		})
	assert.NoError(t, err)

	select {
	case ctxErr := <-resolved:
		assert.NoError(t, ctxErr)
	case <-time.After(time.Second):
		t.Fatal("poller did not time out")
	}
}

func TestPollerKeepsGoingOnFetchError(t *testing.T) {
	poller := New(time.Millisecond, time.Second)

	var fetches int32
	resolved := make(chan paymentgateway.Outcome, 1)

	err := poller.Start(context.TODO(), "run-1",
		func(c context.Context) (paymentgateway.Outcome, error) {
			if atomic.AddInt32(&fetches, 1) < 3 {
				return paymentgateway.Outcome{}, fmt.Errorf("gateway unreachable")
			}
			return paymentgateway.Failed("card declined"), nil
		},
		func(c context.Context, outcome paymentgateway.Outcome) {
			resolved <- outcome
		})
	assert.NoError(t, err)

	select {
	case outcome := <-resolved:
		assert.Equal(t, paymentgateway.OutcomeFailed, outcome.Status)
	case <-time.After(time.Second):
		t.Fatal("poller did not resolve after fetch errors")
	}
}
