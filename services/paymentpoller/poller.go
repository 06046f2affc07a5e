package paymentpoller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MinhChien3980/foodease-backend/lib/myerrors"
	"github.com/MinhChien3980/foodease-backend/lib/mylog"
	"github.com/MinhChien3980/foodease-backend/services/paymentgateway"
)

const (
	DefaultInterval    = 5 * time.Second
	DefaultMaxDuration = 10 * time.Minute
)

// FetchFunc asks the gateway for the current payment status.
type FetchFunc func(c context.Context) (paymentgateway.Outcome, error)

// ResolveFunc delivers the terminal outcome. Called at most once per run.
type ResolveFunc func(c context.Context, outcome paymentgateway.Outcome)

// Poller periodically fetches the payment status of redirect-style runs
// until a terminal outcome arrives, the run is stopped, or the maximum
// duration expires. At most one poll loop runs per run and ticks never
// overlap: a slow fetch simply delays the next tick.
type Poller struct {
	interval    time.Duration
	maxDuration time.Duration
	logger      mylog.Logger

	mutex  sync.Mutex
	active map[string]context.CancelFunc
}

func New(interval time.Duration, maxDuration time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}

	return &Poller{
		interval:    interval,
		maxDuration: maxDuration,
		logger:      mylog.New("paymentpoller"),
		active:      map[string]context.CancelFunc{},
	}
}

// Start begins polling for the given run in the background. The loop outlives
// the request that started it, so it runs on its own context.
func (p *Poller) Start(c context.Context, runUID string, fetch FetchFunc, resolve ResolveFunc) error {
	p.mutex.Lock()
	if _, exists := p.active[runUID]; exists {
		p.mutex.Unlock()
		return myerrors.NewConflictError(fmt.Errorf("poller already active for run %s", runUID))
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	p.active[runUID] = cancel
	p.mutex.Unlock()

	p.logger.Log(c, runUID, mylog.SeverityInfo, "Start polling payment status of run %s every %s", runUID, p.interval)

	go p.loop(loopCtx, runUID, fetch, resolve)

	return nil
}

// Stop cancels the poll loop of the given run. A stopped run never resolves.
// Stopping a run that is not being polled is a no-op.
func (p *Poller) Stop(runUID string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	cancel, exists := p.active[runUID]
	if !exists {
		return
	}
	cancel()
	delete(p.active, runUID)
}

// IsActive reports whether a poll loop is running for the given run.
func (p *Poller) IsActive(runUID string) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	_, exists := p.active[runUID]

	return exists
}

func (p *Poller) loop(c context.Context, runUID string, fetch FetchFunc, resolve ResolveFunc) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	deadline := time.NewTimer(p.maxDuration)
	defer deadline.Stop()

	for {
		select {
		case <-c.Done():
			return

		case <-deadline.C:
			// Ambiguous: the charge may still have landed at the provider.
			if cancel, claimed := p.finish(runUID); claimed {
				defer cancel()
				p.logger.Log(c, runUID, mylog.SeverityWarn, "Polling for run %s exceeded %s, giving up", runUID, p.maxDuration)
				resolve(c, paymentgateway.Outcome{
					Status: paymentgateway.OutcomeTimedOut,
					Reason: fmt.Sprintf("no terminal payment status within %s", p.maxDuration),
				})
			}
			return

		case <-ticker.C:
			outcome, err := fetch(c)
			if err != nil {
				p.logger.Log(c, runUID, mylog.SeverityWarn, "Error fetching payment status of run %s: %s", runUID, err)
				continue
			}
			if !outcome.Status.IsTerminal() {
				continue
			}
			if cancel, claimed := p.finish(runUID); claimed {
				defer cancel()
				p.logger.Log(c, runUID, mylog.SeverityInfo, "Polling of run %s observed terminal status %s", runUID, outcome.Status)
				resolve(c, outcome)
			}
			return
		}
	}
}

// finish atomically claims the right to resolve: it reports false when the
// run was stopped concurrently. It hands the loop context's cancel func back
// to the caller instead of cancelling itself, so the outcome is delivered on
// a context that is still alive.
func (p *Poller) finish(runUID string) (context.CancelFunc, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	cancel, exists := p.active[runUID]
	if !exists {
		return nil, false
	}
	delete(p.active, runUID)

	return cancel, true
}
