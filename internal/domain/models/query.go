package models

import "time"

const DateLayout = "2006-01-02"

// SearchQuery is one point of the search space. Dates are UTC midnights.
type SearchQuery struct {
	Origin      string
	Destination string
	DepartDate  time.Time
	ReturnDate  time.Time
	Passengers  int
}

type Window struct {
	Start time.Time
	End   time.Time
}

// SearchSpace is the cartesian space walked by a scan.
// Weekdays use 0=Monday..6=Sunday.
type SearchSpace struct {
	Origins      []string
	Destinations []string
	Window       Window
	Weekdays     []int
	TripLength   int
	Passengers   int
}

func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MondayBasedWeekday maps time.Weekday (Sunday=0) onto 0=Monday..6=Sunday.
func MondayBasedWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
