package livesync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/brandintel/internal/metrics"
	"git.home.luguber.info/inful/brandintel/internal/model"
	"git.home.luguber.info/inful/brandintel/internal/retry"
)

// ConnState is the live channel's connection state.
type ConnState string

const (
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateDisconnected ConnState = "disconnected"
	StateReconnecting ConnState = "reconnecting"
	StatePolling      ConnState = "polling"
)

// Timer is a cancellable deferred call; the factory is injectable so tests
// can count and fire timers deterministically.
type Timer interface {
	Stop() bool
}

// TimerFactory schedules fn after d and returns a handle to cancel it.
type TimerFactory func(d time.Duration, fn func()) Timer

type stdTimer struct{ *time.Timer }

func defaultTimerFactory(d time.Duration, fn func()) Timer {
	return stdTimer{time.AfterFunc(d, fn)}
}

// Options configures a Channel.
type Options struct {
	Backoff      retry.Policy
	PollInterval time.Duration
	NewTimer     TimerFactory
	Recorder     metrics.Recorder
}

func (o *Options) applyDefaults() {
	if o.Backoff == (retry.Policy{}) {
		o.Backoff = retry.DefaultPolicy()
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 30 * time.Second
	}
	if o.NewTimer == nil {
		o.NewTimer = defaultTimerFactory
	}
	if o.Recorder == nil {
		o.Recorder = metrics.NoopRecorder{}
	}
}

// Channel keeps one consumer synchronized with one subject's units. The
// subscription and the fallback poller are mutually exclusive: starting one
// always stops the other. All transitions are serialized under mu.
type Channel struct {
	subjectID string
	feed      Feed
	fetcher   Fetcher
	deliver   func([]model.ExtractionUnit)
	opts      Options

	mu       sync.Mutex
	state    ConnState
	attempts int
	sub      Subscription
	reTimer  Timer
	poller   Timer
	closed   bool
}

// NewChannel creates a channel; Start begins delivery.
func NewChannel(subjectID string, feed Feed, fetcher Fetcher, deliver func([]model.ExtractionUnit), opts Options) *Channel {
	opts.applyDefaults()
	return &Channel{
		subjectID: subjectID,
		feed:      feed,
		fetcher:   fetcher,
		deliver:   deliver,
		opts:      opts,
		state:     StateConnecting,
	}
}

// State returns the current connection state.
func (c *Channel) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start subscribes to the feed and performs an initial snapshot delivery.
func (c *Channel) Start(ctx context.Context) {
	c.setState(StateConnecting)
	c.Refresh(ctx)
	c.subscribe(ctx)
}

// Refresh is an imperative full re-fetch independent of either transport.
func (c *Channel) Refresh(ctx context.Context) {
	units, err := c.fetcher.FetchUnits(ctx, c.subjectID)
	if err != nil {
		slog.Warn("snapshot fetch failed",
			slog.String("subject", c.subjectID), slog.Any("error", err))
		return
	}
	c.send(units)
}

// Close tears the channel down: transport, pending timers, and delivery are
// all stopped. Idempotent.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	sub := c.sub
	c.sub = nil
	c.stopTimersLocked()
	c.mu.Unlock()

	if sub != nil {
		_ = sub.Close()
	}
}

func (c *Channel) subscribe(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	sub, err := c.feed.Subscribe(ctx, c.subjectID, &channelHandler{c: c, ctx: ctx})
	if err != nil {
		c.onDisconnected(ctx, err)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = sub.Close()
		return
	}
	c.sub = sub
	c.mu.Unlock()
}

// onConnected handles the subscribe acknowledgment: any active poller stops
// and the reconnect counter resets.
func (c *Channel) onConnected() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.attempts = 0
	if c.poller != nil {
		c.poller.Stop()
		c.poller = nil
	}
	c.state = StateConnected
	c.mu.Unlock()

	c.opts.Recorder.SyncState(string(StateConnected))
	slog.Debug("live sync connected", slog.String("subject", c.subjectID))
}

// onEvent re-fetches the entire current set and delivers it whole.
func (c *Channel) onEvent(ctx context.Context, _ Event) {
	c.Refresh(ctx)
}

// onDisconnected schedules a reconnect with linearly growing backoff; once
// attempts are exhausted the channel switches permanently to the poller. The
// stale subscription is closed first: transports that reconnect under the
// hood would otherwise revive it alongside the channel's own re-subscribe
// and deliver every event twice.
func (c *Channel) onDisconnected(ctx context.Context, err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	sub := c.sub
	c.sub = nil
	c.state = StateDisconnected
	c.mu.Unlock()
	if sub != nil {
		_ = sub.Close()
	}
	c.opts.Recorder.SyncState(string(StateDisconnected))

	slog.Debug("live sync disconnected",
		slog.String("subject", c.subjectID), slog.Any("error", err))

	c.mu.Lock()
	if c.attempts >= c.opts.Backoff.MaxAttempts {
		c.mu.Unlock()
		c.startPolling(ctx)
		return
	}
	c.attempts++
	attempt := c.attempts
	c.state = StateReconnecting
	delay := c.opts.Backoff.Delay(attempt)
	c.reTimer = c.opts.NewTimer(delay, func() {
		c.mu.Lock()
		c.reTimer = nil
		closed := c.closed
		c.mu.Unlock()
		if !closed {
			c.subscribe(ctx)
		}
	})
	c.mu.Unlock()

	c.opts.Recorder.SyncState(string(StateReconnecting))
	slog.Debug("live sync reconnect scheduled",
		slog.String("subject", c.subjectID),
		slog.Int("attempt", attempt),
		slog.Duration("delay", delay))
}

// startPolling switches to the fixed-interval fallback. The subscription is
// gone by the time this runs; the poller re-arms itself until Close.
func (c *Channel) startPolling(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.poller != nil {
		c.mu.Unlock()
		return
	}
	c.state = StatePolling
	c.armPollerLocked(ctx)
	c.mu.Unlock()

	c.opts.Recorder.SyncState(string(StatePolling))
	slog.Info("live sync fell back to polling",
		slog.String("subject", c.subjectID),
		slog.Duration("interval", c.opts.PollInterval))
}

func (c *Channel) armPollerLocked(ctx context.Context) {
	c.poller = c.opts.NewTimer(c.opts.PollInterval, func() {
		c.mu.Lock()
		if c.closed || c.state != StatePolling {
			c.mu.Unlock()
			return
		}
		c.armPollerLocked(ctx)
		c.mu.Unlock()
		c.Refresh(ctx)
	})
}

// send delivers a snapshot, guarded by the liveness flag so the consumer
// callback never fires after teardown.
func (c *Channel) send(units []model.ExtractionUnit) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed || c.deliver == nil {
		return
	}
	c.deliver(units)
}

func (c *Channel) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.opts.Recorder.SyncState(string(s))
}

func (c *Channel) stopTimersLocked() {
	if c.reTimer != nil {
		c.reTimer.Stop()
		c.reTimer = nil
	}
	if c.poller != nil {
		c.poller.Stop()
		c.poller = nil
	}
}

// channelHandler adapts the Feed callbacks onto the channel.
type channelHandler struct {
	c   *Channel
	ctx context.Context
}

func (h *channelHandler) OnConnected()             { h.c.onConnected() }
func (h *channelHandler) OnEvent(e Event)          { h.c.onEvent(h.ctx, e) }
func (h *channelHandler) OnDisconnected(err error) { h.c.onDisconnected(h.ctx, err) }
