package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/recorder/internal/core/domain"
	"github.com/custodia-labs/recorder/internal/core/ports/driven"
	"github.com/custodia-labs/recorder/internal/core/ports/driving"
	"github.com/custodia-labs/recorder/internal/logger"
)

// Ensure CalendarSync implements the interface.
var _ driving.EventsService = (*CalendarSync)(nil)

// manualRefreshEvery throttles RefreshNow.
const manualRefreshEvery = 10 * time.Second

// CalendarSync keeps meeting events in SharedState fresh.
// It fetches once after an initial delay, then on every interval,
// and whenever RefreshNow is called.
type CalendarSync struct {
	provider     driven.EventsProvider
	state        *SharedState
	initialDelay time.Duration
	interval     time.Duration
	limiter      *rate.Limiter
	refreshCh    chan struct{}
	log          logger.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewCalendarSync creates a calendar sync task.
func NewCalendarSync(provider driven.EventsProvider, state *SharedState, cfg domain.CalendarSettings) *CalendarSync {
	interval := cfg.Interval.D()
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CalendarSync{
		provider:     provider,
		state:        state,
		initialDelay: cfg.InitialDelay.D(),
		interval:     interval,
		limiter:      rate.NewLimiter(rate.Every(manualRefreshEvery), 1),
		refreshCh:    make(chan struct{}, 1),
		log:          logger.Named("calendar"),
	}
}

// Start runs the sync loop. This method blocks until Stop is called
// or ctx is done.
func (c *CalendarSync) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil // Already running
	}
	c.running = true
	c.stopCh = make(chan struct{})
	stopCh := c.stopCh
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()

	initial := time.NewTimer(c.initialDelay)
	defer initial.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stopCh:
		return nil
	case <-initial.C:
		c.fetch(ctx)
	case <-c.refreshCh:
		c.fetch(ctx)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			c.fetch(ctx)
		case <-c.refreshCh:
			c.fetch(ctx)
		}
	}
}

// Stop shuts down the loop and waits for an in-progress fetch.
func (c *CalendarSync) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	close(c.stopCh)
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}

// RefreshNow requests an immediate fetch. Returns false when throttled.
func (c *CalendarSync) RefreshNow() bool {
	if !c.limiter.Allow() {
		return false
	}
	select {
	case c.refreshCh <- struct{}{}:
	default:
	}
	return true
}

// Events returns the latest events.
func (c *CalendarSync) Events() []domain.MeetingEvent {
	return c.state.Events()
}

// FetchOnce fetches events with the held credential and stores them.
func (c *CalendarSync) FetchOnce(ctx context.Context) ([]domain.MeetingEvent, error) {
	token := c.state.AccessToken()
	if token == "" {
		return nil, domain.ErrAuthRequired
	}
	events, err := c.provider.FetchEvents(ctx, token)
	if err != nil {
		return nil, err
	}
	c.state.SetEvents(events)
	return events, nil
}

func (c *CalendarSync) fetch(ctx context.Context) {
	events, err := c.FetchOnce(ctx)
	if err != nil {
		c.log.Warn("fetch events: %v", err)
		return
	}
	c.log.Debug("fetched %d events", len(events))
}
