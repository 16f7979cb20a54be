// Package window computes the reporting window for a notifier run.
package window

import "time"

// Previous returns the first and last calendar day of the month before now,
// both at midnight in now's location. January rolls over to December of the
// prior year; time.Date normalizes day 0 of a month to the last day of the
// month before it, which also handles leap Februaries.
func Previous(now time.Time) (from, to time.Time) {
	from = time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
	to = time.Date(now.Year(), now.Month(), 0, 0, 0, 0, 0, now.Location())
	return from, to
}
