package main

import (
	"fmt"
	"time"
)

// weekdayLabels is indexed by time.Weekday, so every weekday has a label.
var weekdayLabels = [7]string{
	time.Sunday:    "日",
	time.Monday:    "月",
	time.Tuesday:   "火",
	time.Wednesday: "水",
	time.Thursday:  "木",
	time.Friday:    "金",
	time.Saturday:  "土",
}

// FormatDate renders the date label used as the selection key, e.g. "3月5日(火)".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d月%d日(%s)", int(t.Month()), t.Day(), weekdayLabels[t.Weekday()])
}

// FormatTime renders a 24-hour "HH:MM" label.
func FormatTime(t time.Time) string {
	return t.Format("15:04")
}

// FormatRange renders the time label of a selection, e.g. "09:00-09:30".
func FormatRange(start, end time.Time) string {
	return FormatTime(start) + "-" + FormatTime(end)
}

// FormatWeekRange renders the grid header, e.g. "3月3日~3月9日".
func FormatWeekRange(start, end time.Time) string {
	return fmt.Sprintf("%d月%d日~%d月%d日", int(start.Month()), start.Day(), int(end.Month()), end.Day())
}
