package rendering

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01",
	"2006-01-02",
	time.RFC3339,
	"2006/01",
	"Jan 2006",
	"January 2006",
	"2006",
}

// FormatDate renders a profile date as "Jan 2023". Unparseable input yields "".
func FormatDate(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t.Format("Jan 2006")
		}
	}
	return ""
}

// FormatDateRange renders a start/end pair.
// Current wins over an end date; an unparseable start blanks the whole range.
func FormatDateRange(start, end string, current bool) string {
	from := FormatDate(start)
	if from == "" {
		return ""
	}
	if current {
		return from + " -- Present"
	}
	if to := FormatDate(end); to != "" {
		return from + " -- " + to
	}
	return from
}
