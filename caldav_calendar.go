package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
)

// CalDAVProvider is a read-only overlay calendar on a CalDAV server.
type CalDAVProvider struct {
	client       *caldav.Client
	name         string
	calendarPath string
	loc          *time.Location
}

func NewCalDAVProvider(name string, server CalDAVConfig, loc *time.Location) (*CalDAVProvider, error) {
	baseURL, err := url.Parse(server.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid CalDAV server URL: %w", err)
	}
	calURL, err := url.Parse(server.Calendar)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar URL: %w", err)
	}

	var httpClient webdav.HTTPClient = http.DefaultClient
	if server.Username != "" && server.Password != "" {
		httpClient = webdav.HTTPClientWithBasicAuth(httpClient, server.Username, server.Password)
	}

	c, err := caldav.NewClient(httpClient, baseURL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create CalDAV client: %w", err)
	}

	if server.Name != "" {
		name = server.Name
	}
	return &CalDAVProvider{
		client:       c,
		name:         name,
		calendarPath: calURL.Path,
		loc:          loc,
	}, nil
}

func (c *CalDAVProvider) Name() string {
	return c.name
}

// GetCalendar checks that the configured calendar exists in its home set.
func (c *CalDAVProvider) GetCalendar(ctx context.Context) error {
	homeSetPath := "/"
	parts := strings.Split(strings.TrimRight(c.calendarPath, "/"), "/")
	if len(parts) > 1 {
		homeSetPath = strings.Join(parts[:len(parts)-1], "/") + "/"
	}

	calendars, err := c.client.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return fmt.Errorf("failed to find calendars: %w", err)
	}
	want := strings.TrimRight(c.calendarPath, "/")
	for _, cal := range calendars {
		if strings.TrimRight(cal.Path, "/") == want {
			return nil
		}
	}
	return fmt.Errorf("calendar not found at path: %s", c.calendarPath)
}

func (c *CalDAVProvider) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]CalendarEvent, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     "VCALENDAR",
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: timeMin,
				End:   timeMax,
			}},
		},
	}

	objects, err := c.client.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	var parsed []overlayEvent
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		parsed = append(parsed, parseOverlayEvents(obj.Data, c.loc)...)
	}
	return expandOccurrences(parsed, c.name, timeMin, timeMax), nil
}

// parseOverlayEvents pulls the VEVENTs we can place on the grid out of a
// calendar object. Cancelled events are skipped.
func parseOverlayEvents(cal *ical.Calendar, loc *time.Location) []overlayEvent {
	var result []overlayEvent
	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		if strings.EqualFold(getTextProp(comp.Props, ical.PropStatus), "CANCELLED") {
			continue
		}

		startProp := comp.Props.Get(ical.PropDateTimeStart)
		if startProp == nil {
			continue
		}
		start, err := startProp.DateTime(loc)
		if err != nil {
			continue
		}
		allDay := startProp.ValueType() == ical.ValueDate

		end, err := comp.Props.DateTime(ical.PropDateTimeEnd, loc)
		if err != nil || end.IsZero() {
			if allDay {
				end = start.AddDate(0, 0, 1)
			} else {
				end = start.Add(time.Hour)
			}
		}

		ev := overlayEvent{
			UID:     getTextProp(comp.Props, ical.PropUID),
			Summary: getTextProp(comp.Props, ical.PropSummary),
			Start:   start,
			End:     end,
			AllDay:  allDay,
			RRule:   getTextProp(comp.Props, ical.PropRecurrenceRule),
			ExDates: exceptionDates(comp.Props, loc),
		}
		if rid := comp.Props.Get(ical.PropRecurrenceID); rid != nil {
			if t, err := rid.DateTime(loc); err == nil {
				ev.RecurrenceID = t
			}
		}
		result = append(result, ev)
	}
	return result
}

func exceptionDates(props ical.Props, loc *time.Location) []time.Time {
	var out []time.Time
	for _, prop := range props.Values(ical.PropExceptionDates) {
		for _, v := range strings.Split(prop.Value, ",") {
			single := prop
			single.Value = strings.TrimSpace(v)
			if t, err := single.DateTime(loc); err == nil {
				out = append(out, t)
			}
		}
	}
	return out
}

func getTextProp(props ical.Props, name string) string {
	prop := props.Get(name)
	if prop == nil {
		return ""
	}
	return prop.Value
}
