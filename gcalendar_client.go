package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// eventInserter creates a single calendar event.
type eventInserter interface {
	insertEvent(ctx context.Context, event *calendar.Event) (*calendar.Event, error)
}

type googleCalendarService struct {
	*Common
	googleClient *http.Client
	srv          *calendar.Service
	calendarID   string
}

func newGoogleCalendarService(ctx context.Context, common *Common, googleClient *http.Client, calendarID string, opts ...option.ClientOption) (googleCalendarService, error) {
	calendarSrvc := googleCalendarService{
		Common:       common,
		googleClient: googleClient,
		calendarID:   calendarID,
	}

	opts = append([]option.ClientOption{option.WithHTTPClient(googleClient)}, opts...)
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return calendarSrvc, fmt.Errorf("Unable to retrieve Calendar client: %w", err)
	}
	calendarSrvc.srv = srv

	return calendarSrvc, nil
}

func (gc googleCalendarService) insertEvent(ctx context.Context, event *calendar.Event) (*calendar.Event, error) {
	created, err := gc.srv.Events.Insert(gc.calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("Unable to add event to calendar. Err: %w", err)
	}
	gc.logger.Debug("Event created", "id", created.Id, "link", created.HtmlLink)
	return created, nil
}

// dryRunInserter prints events instead of creating them.
type dryRunInserter struct {
	*Common
}

func newDryRunInserter(common *Common) dryRunInserter {
	return dryRunInserter{Common: common}
}

func (d dryRunInserter) insertEvent(_ context.Context, event *calendar.Event) (*calendar.Event, error) {
	d.reporter.status("📝", "[dry-run] %s %s → %s (%s)", event.Summary,
		event.Start.DateTime, event.End.DateTime, event.Start.TimeZone)
	return event, nil
}

type publishSummary struct {
	attempted int
	created   int
	failed    int
}

// publisher turns shift records into calendar events. Each record stands
// alone: a bad date or a failed insert is reported and the rest still go
// through. Nothing is deduplicated, so re-running creates the events again.
type publisher struct {
	*Common
	inserter eventInserter
	cfg      appConfig
}

func newPublisher(common *Common, inserter eventInserter, cfg appConfig) *publisher {
	return &publisher{
		Common:   common,
		inserter: inserter,
		cfg:      cfg,
	}
}

func (p *publisher) publish(ctx context.Context, records []shiftRecord) publishSummary {
	p.reporter.status("📅", "Creating calendar events...")

	var summary publishSummary
	for _, rec := range records {
		s, err := newShift(rec, p.cfg.location)
		if err != nil {
			summary.failed++
			p.logger.Error("Couldn't parse shift", "shift", rec.String(), "err", err)
			p.reporter.failure("❌", "Error creating event: %v", err)
			continue
		}

		summary.attempted++
		if _, err := p.inserter.insertEvent(ctx, makeEvent(s, p.cfg)); err != nil {
			summary.failed++
			p.logger.Error("Couldn't add shift to calendar", "shift", rec.String(), "err", err)
			p.reporter.failure("❌", "Error creating event: %v", err)
			continue
		}
		summary.created++
		p.reporter.success("✅", "Added: %s", rec)
	}
	return summary
}

func makeEvent(s shift, cfg appConfig) *calendar.Event {
	startTime := &calendar.EventDateTime{
		DateTime: s.StartTime.Format(time.RFC3339),
		TimeZone: cfg.timezone,
	}
	endTime := &calendar.EventDateTime{
		DateTime: s.EndTime.Format(time.RFC3339),
		TimeZone: cfg.timezone,
	}

	return &calendar.Event{
		Start:    startTime,
		End:      endTime,
		Summary:  cfg.eventSummary,
		Location: cfg.eventLocation,
		Reminders: &calendar.EventReminders{
			UseDefault: true,
		},
	}
}
