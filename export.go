package main

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
)

const productID = "-//nittei-gerorin//candidate times//JA"

// writeCandidatesICS encodes every selected slot as a tentative event so the
// candidate list can be imported as holds.
func writeCandidatesICS(w io.Writer, entries []SelectionEntry, now time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	n := 0
	for _, entry := range entries {
		for i, slot := range entry.Slots {
			if !validRange(slot.Start, slot.End) {
				continue
			}
			n++
			event := ical.NewEvent()
			event.Props.SetText(ical.PropUID, fmt.Sprintf("candidate-%d-%d@nittei-gerorin", slot.Start.Unix(), n))
			event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
			event.Props.SetDateTime(ical.PropDateTimeStart, slot.Start.UTC())
			event.Props.SetDateTime(ical.PropDateTimeEnd, slot.End.UTC())
			event.Props.SetText(ical.PropSummary, "候補 "+entry.Date+" "+entry.Times[i])
			event.Props.SetText(ical.PropStatus, "TENTATIVE")
			event.Props.SetText(ical.PropTransparency, "TRANSPARENT")
			cal.Children = append(cal.Children, event.Component)
		}
	}
	if n == 0 {
		return ErrEmptySelection
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode candidates: %w", err)
	}
	return nil
}
