package search

import (
	"iter"
	"strings"

	"github.com/ozzus/fare-watcher/internal/domain/models"
)

// Enumerate yields queries origin-major, then destination, then ascending
// depart day within the inclusive window, keeping only allowed weekdays.
// The sequence holds no state between iterations, so it can be ranged over
// any number of times with identical results.
//
// The ordering favours early origins and destinations when the run budget
// is smaller than Count(space).
func Enumerate(space models.SearchSpace) iter.Seq[models.SearchQuery] {
	allowed := weekdaySet(space.Weekdays)
	start := models.Day(space.Window.Start)
	end := models.Day(space.Window.End)

	return func(yield func(models.SearchQuery) bool) {
		for _, origin := range space.Origins {
			origin = normalizeCode(origin)
			for _, destination := range space.Destinations {
				destination = normalizeCode(destination)
				for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
					if _, ok := allowed[models.MondayBasedWeekday(day)]; !ok {
						continue
					}
					query := models.SearchQuery{
						Origin:      origin,
						Destination: destination,
						DepartDate:  day,
						ReturnDate:  day.AddDate(0, 0, space.TripLength),
						Passengers:  space.Passengers,
					}
					if !yield(query) {
						return
					}
				}
			}
		}
	}
}

// Count returns the number of queries Enumerate yields for space.
func Count(space models.SearchSpace) int {
	return len(space.Origins) * len(space.Destinations) * MatchingDays(space.Window, space.Weekdays)
}

func MatchingDays(window models.Window, weekdays []int) int {
	allowed := weekdaySet(weekdays)
	end := models.Day(window.End)

	days := 0
	for day := models.Day(window.Start); !day.After(end); day = day.AddDate(0, 0, 1) {
		if _, ok := allowed[models.MondayBasedWeekday(day)]; ok {
			days++
		}
	}
	return days
}

func weekdaySet(weekdays []int) map[int]struct{} {
	set := make(map[int]struct{}, len(weekdays))
	for _, wd := range weekdays {
		set[wd] = struct{}{}
	}
	return set
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
