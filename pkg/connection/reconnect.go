package connection

import (
	"context"
	"sync"
	"time"
)

// DefaultDialTimeout bounds a single redial.
const DefaultDialTimeout = 10 * time.Second

// DialFunc re-establishes the transport. It should emit the transport's
// OnOpen before returning nil.
type DialFunc func(ctx context.Context) error

// ReconnectConfig configures Reconnect.
type ReconnectConfig struct {
	// MaxAttempts is the number of redials before giving up (0 = unlimited).
	MaxAttempts int

	// DialTimeout bounds each redial (default: 10s).
	DialTimeout time.Duration

	// Backoff shapes the delay between redials.
	Backoff BackoffConfig
}

// Reconnect is a Reconnector that redials with exponential backoff in a
// background goroutine.
type Reconnect struct {
	mu sync.Mutex

	dial    DialFunc
	config  ReconnectConfig
	backoff *Backoff

	running bool
	// again is set when the connection is lost while the loop is still
	// finishing a successful dial.
	again   bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	onReconnecting func(attempt int, delay time.Duration)
	onGiveUp       func()
}

// NewReconnect creates a reconnection policy around dial.
func NewReconnect(dial DialFunc, config ReconnectConfig) *Reconnect {
	if config.DialTimeout <= 0 {
		config.DialTimeout = DefaultDialTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconnect{
		dial:    dial,
		config:  config,
		backoff: NewBackoffWithConfig(config.Backoff),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// OnReconnecting sets a callback invoked before each redial delay.
func (r *Reconnect) OnReconnecting(fn func(attempt int, delay time.Duration)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onReconnecting = fn
}

// OnGiveUp sets a callback invoked when MaxAttempts redials have failed.
// It runs on the reconnect goroutine after that goroutine has finished, so
// it may call Stop.
func (r *Reconnect) OnGiveUp(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onGiveUp = fn
}

// ConnectionLost starts the redial loop. It returns false once stopped or
// when MaxAttempts redials have already failed.
func (r *Reconnect) ConnectionLost() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped || r.exhausted() {
		return false
	}
	if r.running {
		r.again = true
		return true
	}
	r.running = true
	r.wg.Add(1)
	go r.loop()
	return true
}

// ConnectionEstablished resets the backoff after a successful redial.
func (r *Reconnect) ConnectionEstablished() {
	r.backoff.Reset()
}

// Attempts returns the number of redials since the last success.
func (r *Reconnect) Attempts() int {
	return r.backoff.Attempts()
}

// Stop cancels any pending redial and waits for the loop to exit.
func (r *Reconnect) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
}

// exhausted must be called with mu held.
func (r *Reconnect) exhausted() bool {
	return r.config.MaxAttempts > 0 && r.backoff.Attempts() >= r.config.MaxAttempts
}

func (r *Reconnect) loop() {
	gaveUp := r.run()
	r.wg.Done()

	if gaveUp {
		r.mu.Lock()
		fn := r.onGiveUp
		r.mu.Unlock()
		if fn != nil {
			fn()
		}
	}
}

// run redials until success, cancellation or exhaustion. It returns true
// when it gave up.
func (r *Reconnect) run() bool {
	for {
		r.mu.Lock()
		if r.stopped {
			r.running = false
			r.mu.Unlock()
			return false
		}
		if r.exhausted() {
			r.running = false
			r.mu.Unlock()
			return true
		}
		r.again = false
		delay := r.backoff.Next()
		attempt := r.backoff.Attempts()
		notify := r.onReconnecting
		r.mu.Unlock()

		if notify != nil {
			notify(attempt, delay)
		}

		select {
		case <-r.ctx.Done():
			r.mu.Lock()
			r.running = false
			r.mu.Unlock()
			return false
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(r.ctx, r.config.DialTimeout)
		err := r.dial(ctx)
		cancel()
		if err != nil {
			continue
		}

		r.mu.Lock()
		if r.again {
			r.mu.Unlock()
			continue
		}
		r.running = false
		r.mu.Unlock()
		return false
	}
}
