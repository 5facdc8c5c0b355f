package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
)

func TestWriteCandidatesICS(t *testing.T) {
	t.Parallel()
	s := NewSelection(time.UTC)
	start := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	s.Select(start, start.Add(30*time.Minute))
	s.Select(start.Add(time.Hour), start.Add(90*time.Minute))
	s.Select(start.AddDate(0, 0, 1), start.AddDate(0, 0, 1).Add(time.Hour))

	var buf bytes.Buffer
	if err := writeCandidatesICS(&buf, s.Entries(), start); err != nil {
		t.Fatalf("write: %v", err)
	}

	cal, err := ical.NewDecoder(strings.NewReader(buf.String())).Decode()
	if err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	events := cal.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if got := getTextProp(events[0].Props, ical.PropSummary); got != "候補 3月5日(火) 09:00-09:30" {
		t.Fatalf("summary = %q", got)
	}
	dtstart, err := events[2].DateTimeStart(time.UTC)
	if err != nil || !dtstart.Equal(start.AddDate(0, 0, 1)) {
		t.Fatalf("dtstart = %v (%v)", dtstart, err)
	}
}

func TestWriteCandidatesICSEmpty(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := writeCandidatesICS(&buf, nil, time.Now()); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}
