package calendar

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"

	"github.com/custodia-labs/recorder/internal/connectors/google"
	"github.com/custodia-labs/recorder/internal/core/domain"
	"github.com/custodia-labs/recorder/internal/core/ports/driven"
	"github.com/custodia-labs/recorder/internal/logger"
)

// DefaultCalendarID selects the signed-in user's main calendar.
const DefaultCalendarID = "primary"

// maxResults caps one listing; a day rarely holds more meetings.
const maxResults = 50

// Verify interface compliance.
var _ driven.EventsProvider = (*Provider)(nil)

// Provider lists upcoming meetings from Google Calendar.
type Provider struct {
	calendarID string
	opts       []option.ClientOption
	limiter    *google.RateLimiter
	now        func() time.Time
	log        logger.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithClientOptions appends Google API client options, such as a custom
// endpoint or HTTP client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(p *Provider) {
		p.opts = append(p.opts, opts...)
	}
}

// NewProvider creates a provider for calendarID, defaulting to the primary calendar.
func NewProvider(calendarID string, opts ...Option) *Provider {
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}
	p := &Provider{
		calendarID: calendarID,
		limiter:    google.NewRateLimiter(google.CalendarRateLimit),
		now:        time.Now,
		log:        logger.Named("calendar"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FetchEvents returns timed events that end after now and start within
// the next-meeting window, ordered by start time.
func (p *Provider) FetchEvents(ctx context.Context, accessToken string) ([]domain.MeetingEvent, error) {
	if accessToken == "" {
		return nil, domain.ErrInvalidToken
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	svc, err := google.NewCalendarService(ctx, google.NewTokenSource(accessToken), p.opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	now := p.now()
	resp, err := svc.Events.List(p.calendarID).
		Context(ctx).
		TimeMin(now.Format(time.RFC3339)).
		TimeMax(now.Add(domain.NextMeetingWindow).Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(maxResults).
		Do()
	if err != nil {
		if google.IsRateLimited(err) {
			p.limiter.RecordRateLimitError(google.RetryAfter(err))
		}
		return nil, google.WrapError(err)
	}

	events := make([]domain.MeetingEvent, 0, len(resp.Items))
	for _, item := range resp.Items {
		if ev, ok := EventToMeeting(item); ok {
			events = append(events, ev)
		}
	}
	p.log.Debug("fetched %d of %d calendar events", len(events), len(resp.Items))
	return events, nil
}
