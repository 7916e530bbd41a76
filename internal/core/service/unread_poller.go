package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const DefaultUnreadInterval = 60 * time.Second

// UnreadSource is the part of the message API the poller needs.
type UnreadSource interface {
	UnreadCount(ctx context.Context) (int, error)
}

// UnreadPoller fetches the unread count once on start and then on every tick
// while a session exists.
type UnreadPoller struct {
	src      UnreadSource
	active   func() bool
	interval time.Duration
	onCount  func(int)
	log      zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewUnreadPoller builds a poller. active reports whether the session still
// exists; onCount receives every successful fetch.
func NewUnreadPoller(src UnreadSource, active func() bool, interval time.Duration, onCount func(int), log zerolog.Logger) *UnreadPoller {
	if interval <= 0 {
		interval = DefaultUnreadInterval
	}
	return &UnreadPoller{
		src:      src,
		active:   active,
		interval: interval,
		onCount:  onCount,
		log:      log.With().Str("component", "unread_poller").Logger(),
	}
}

// Start launches the poll loop. It returns false, and does nothing, when no
// session exists. Calling Start on a running poller is a no-op.
func (p *UnreadPoller) Start(ctx context.Context) bool {
	if !p.active() {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return true
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
	return true
}

// Stop cancels the loop and waits for it to exit. No fetch starts after Stop
// returns.
func (p *UnreadPoller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed once the loop has exited.
func (p *UnreadPoller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *UnreadPoller) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.fetch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			if !p.active() {
				p.log.Debug().Msg("session ended, stopping")
				return
			}
			p.fetch(ctx)
		}
	}
}

func (p *UnreadPoller) fetch(ctx context.Context) {
	n, err := p.src.UnreadCount(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		p.log.Warn().Err(err).Msg("fetch unread count")
		return
	}
	p.onCount(n)
}

// Badge renders an unread count for the header and mobile menu.
func Badge(count int) string {
	switch {
	case count <= 0:
		return ""
	case count > 9:
		return "9+"
	default:
		return strconv.Itoa(count)
	}
}
