package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const (
	primaryCalendarID  = "primary"
	upcomingEventLimit = 10
)

// GoogleCalendar reads the user's primary calendar and profile with a bearer
// token obtained by the session.
type GoogleCalendar struct {
	calendarEndpoint string
	userinfoEndpoint string
	loc              *time.Location
	timeout          time.Duration
	log              *zap.Logger
	now              func() time.Time
}

func NewGoogleCalendar(config *Config, log *zap.Logger) *GoogleCalendar {
	return &GoogleCalendar{
		loc:     config.Location(),
		timeout: config.RequestTimeout.Duration,
		log:     log.Named("google"),
		now:     time.Now,
	}
}

func (g *GoogleCalendar) clientOptions(ctx context.Context, token, endpoint string) []option.ClientOption {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, src))}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	return opts
}

// FetchEvents returns at most ten upcoming events, or an empty list when the
// read fails.
func (g *GoogleCalendar) FetchEvents(ctx context.Context, token string) []CalendarEvent {
	events, err := g.ListUpcoming(ctx, token)
	if err != nil {
		g.log.Warn("event fetch failed, showing an empty calendar", zap.Error(err))
		return []CalendarEvent{}
	}
	g.log.Info("fetched events", zap.Int("count", len(events)))
	return events
}

func (g *GoogleCalendar) ListUpcoming(ctx context.Context, token string) ([]CalendarEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	service, err := calendar.NewService(ctx, g.clientOptions(ctx, token, g.calendarEndpoint)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	events, err := service.Events.List(primaryCalendarID).
		TimeMin(g.now().UTC().Format(time.RFC3339)).
		ShowDeleted(false).
		SingleEvents(true).
		MaxResults(upcomingEventLimit).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	result := make([]CalendarEvent, 0, len(events.Items))
	for _, item := range events.Items {
		event, err := g.convertEvent(item)
		if err != nil {
			g.log.Debug("skipping event", zap.String("id", item.Id), zap.Error(err))
			continue
		}
		result = append(result, event)
	}
	return result, nil
}

func (g *GoogleCalendar) convertEvent(item *calendar.Event) (CalendarEvent, error) {
	start, allDay, err := g.parseEventTime(item.Start)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("bad start: %w", err)
	}
	end, _, err := g.parseEventTime(item.End)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("bad end: %w", err)
	}
	if !validRange(start, end) {
		return CalendarEvent{}, fmt.Errorf("end %s is not after start %s", end, start)
	}
	return CalendarEvent{
		ID:     item.Id,
		Title:  item.Summary,
		Start:  start,
		End:    end,
		AllDay: allDay,
		Source: "google",
	}, nil
}

// parseEventTime prefers the timed field and falls back to the all-day date.
func (g *GoogleCalendar) parseEventTime(edt *calendar.EventDateTime) (time.Time, bool, error) {
	if edt == nil {
		return time.Time{}, false, errors.New("missing time")
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		return t, false, err
	}
	if edt.Date != "" {
		t, err := time.ParseInLocation(time.DateOnly, edt.Date, g.loc)
		return t, true, err
	}
	return time.Time{}, false, errors.New("neither dateTime nor date set")
}

func (g *GoogleCalendar) FetchUserProfile(ctx context.Context, token string) (Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	service, err := oauth2api.NewService(ctx, g.clientOptions(ctx, token, g.userinfoEndpoint)...)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to create userinfo service: %w", err)
	}
	info, err := service.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return Profile{}, fmt.Errorf("failed to fetch user profile: %w", err)
	}
	return Profile{Name: info.Name}, nil
}
