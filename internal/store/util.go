package store

import "time"

// nullableTime maps the zero time to nil so SQL COALESCE defaults apply.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
