package control

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/utils"
)

// Loop calls a tick function once per period on a background goroutine. Ticks never
// overlap; a tick that overruns its period delays the next one.
type Loop struct {
	logger logging.Logger
	period time.Duration
	clk    clock.Clock
	tick   func(ctx context.Context)

	mu                      sync.Mutex
	running                 bool
	cancel                  context.CancelFunc
	activeBackgroundWorkers sync.WaitGroup
}

// NewLoop constructs a loop that runs tick every period, measured on clk.
func NewLoop(logger logging.Logger, period time.Duration, clk clock.Clock, tick func(ctx context.Context)) (*Loop, error) {
	if period < time.Second/200 {
		return nil, errors.New("loop frequency shouldn't be 0 or above 200Hz")
	}
	if tick == nil {
		return nil, errors.New("loop needs a tick function")
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Loop{logger: logger, period: period, clk: clk, tick: tick}, nil
}

// Period returns the time between ticks.
func (l *Loop) Period() time.Duration {
	return l.period
}

// Start starts the loop. It runs until ctx is done or Stop is called, after which it
// may be started again.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return errors.New("loop already running")
	}
	l.logger.Infof("running loop every %v", l.period)

	cancelCtx, cancel := context.WithCancel(ctx)
	ticker := l.clk.Ticker(l.period)
	l.cancel = cancel
	l.running = true
	l.activeBackgroundWorkers.Add(1)
	// A panicking tick restarts this body on the same ticker.
	utils.ManagedGo(func() {
		for {
			select {
			case <-cancelCtx.Done():
				return
			case <-ticker.C:
			}
			if cancelCtx.Err() != nil {
				return
			}
			l.tick(cancelCtx)
		}
	}, func() {
		ticker.Stop()
		cancel()
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
		l.activeBackgroundWorkers.Done()
	})
	return nil
}

// Stop stops the loop and waits for the in-flight tick to return.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	l.logger.Debug("closing loop")
	cancel()
	l.activeBackgroundWorkers.Wait()
}

// Running reports whether the loop goroutine is live.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}
