package app

import (
	"sync"
	"time"

	"classroom-quiz-service/internal/domain"
)

// Countdown is a cancelable periodic tick for the open question. Arming it again cancels
// the previous countdown, so a viewer never keeps counting a question that is no longer current.
type Countdown struct {
	now      func() time.Time
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewCountdown(now func() time.Time, interval time.Duration) *Countdown {
	if now == nil {
		now = time.Now
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Countdown{now: now, interval: interval}
}

// Arm starts ticking for a question opened at start with timerSeconds. tick receives the
// remaining seconds right away and then once per interval; the last call receives 0.
func (c *Countdown) Arm(start time.Time, timerSeconds int, tick func(remaining int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()

	stop := make(chan struct{})
	done := make(chan struct{})
	c.stop, c.done = stop, done

	go func() {
		defer close(done)
		remaining := domain.Remaining(start, timerSeconds, c.now())
		tick(remaining)
		if remaining == 0 {
			return
		}

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				remaining = domain.Remaining(start, timerSeconds, c.now())
				tick(remaining)
				if remaining == 0 {
					return
				}
			}
		}
	}()
}

// Stop cancels the running countdown and waits for its goroutine to exit.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// stopLocked must not be reached from a tick callback: the callback runs on the goroutine it waits for.
func (c *Countdown) stopLocked() {
	if c.stop == nil {
		return
	}
	close(c.stop)
	<-c.done
	c.stop, c.done = nil, nil
}
