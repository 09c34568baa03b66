package server

import (
	"errors"
	"strings"
	"time"

	menudomain "github.com/smallbiznis/dormmenu/internal/menu/domain"
)

// parseOptionalTime accepts RFC3339 or a bare date, widened to the start or end of that day.
func parseOptionalTime(value string, endOfDay bool) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &parsed, nil
	}
	if parsed, ok := menudomain.ParseDate(trimmed); ok {
		if endOfDay {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
		} else {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
		}
		return &parsed, nil
	}
	return nil, errors.New("invalid_time")
}
