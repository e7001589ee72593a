package service

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// parseDate accepts YYYY-MM-DD or RFC 3339. dateOnly reports which one matched.
func parseDate(s string) (t time.Time, dateOnly bool, err error) {
	if t, err = time.Parse(dateLayout, s); err == nil {
		return t, true, nil
	}
	if t, err = time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	return time.Time{}, false, fmt.Errorf("%q is not a YYYY-MM-DD or RFC 3339 date", s)
}

// parseRangeBound parses a visit-date bound. A date-only upper bound covers
// the whole day.
func parseRangeBound(name, s string, upper bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, dateOnly, err := parseDate(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidQuery, name, err)
	}
	if upper && dateOnly {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
