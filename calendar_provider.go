package main

import (
	"context"
	"time"
)

// CalendarEvent is an entry drawn on the grid. Start is always before End.
type CalendarEvent struct {
	ID     string
	Title  string
	Start  time.Time
	End    time.Time
	AllDay bool
	Source string
}

type Profile struct {
	Name string
}

// EventSource reads the logged-in user's upcoming events. Failures degrade
// to an empty list.
type EventSource interface {
	FetchEvents(ctx context.Context, token string) []CalendarEvent
}

// ProfileSource reads the logged-in user's profile. A failure means the
// login is not trusted.
type ProfileSource interface {
	FetchUserProfile(ctx context.Context, token string) (Profile, error)
}

// CalendarProvider is a read-only calendar that is independent of the login.
type CalendarProvider interface {
	Name() string
	ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]CalendarEvent, error)
}

func validRange(start, end time.Time) bool {
	return !start.IsZero() && end.After(start)
}
