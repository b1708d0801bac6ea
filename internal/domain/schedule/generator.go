package schedule

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Grid generates contiguous intervals of exactly duration, starting at
// startMin minutes past midnight of day and never extending past endMin. A
// partial trailing interval is dropped. Returns nil when nothing fits.
func Grid(day time.Time, startMin, endMin int, duration time.Duration) []Interval {
	if duration <= 0 || startMin >= endMin {
		return nil
	}

	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	windowStart := midnight.Add(time.Duration(startMin) * time.Minute)
	windowEnd := midnight.Add(time.Duration(endMin) * time.Minute)

	var grid []Interval
	for cur := windowStart; !cur.Add(duration).After(windowEnd); cur = cur.Add(duration) {
		grid = append(grid, Interval{Start: cur, End: cur.Add(duration)})
	}
	return grid
}
