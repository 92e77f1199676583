// Package series turns raw usage events into the energy and cost time
// series the sensors publish, and rolls points up into daily
// accumulating statistics.
package series

import (
	"sort"
	"time"

	"github.com/kaizen-energy/kaizend/internal/models"
)

// readingLag is how far a reading's timestamp trails the day it
// describes. The provider stamps readings at roughly 01:00 on the
// following day, so each point is shifted back one day to land on the
// day it actually measures.
const readingLag = 24 * time.Hour

// MapEvents converts raw usage events into parallel energy (kWh) and
// cost series. The mapping is pure and order-preserving: every event
// yields exactly one point in each series, keyed by the event's
// corrected reading date, and an empty input yields two empty series.
// Gaps in the upstream data stay gaps; nothing is deduplicated or
// interpolated here.
func MapEvents(events []models.UsageEvent) (energy, cost models.Series) {
	energy = make(models.Series, 0, len(events))
	cost = make(models.Series, 0, len(events))

	for _, event := range events {
		ts := event.TimeOfRead.Add(-readingLag)
		energy = append(energy, models.Point{Time: ts, Value: event.Quantity})
		cost = append(cost, models.Point{Time: ts, Value: event.Cost})
	}
	return energy, cost
}

// DailyStatistics rolls a series up into one statistic row per local
// day, accumulating a running sum seeded with lastSum (the latest sum
// already in the store). Points are grouped in ascending day order
// regardless of input order; multiple points falling on the same day
// are summed, although each reading normally already covers a full day.
func DailyStatistics(points models.Series, lastSum float64) []models.Statistic {
	if len(points) == 0 {
		return nil
	}

	totals := make(map[time.Time]float64, len(points))
	days := make([]time.Time, 0, len(points))
	for _, p := range points {
		day := dayStart(p.Time)
		if _, seen := totals[day]; !seen {
			days = append(days, day)
		}
		totals[day] += p.Value
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	accumulated := lastSum
	stats := make([]models.Statistic, 0, len(days))
	for _, day := range days {
		accumulated += totals[day]
		stats = append(stats, models.Statistic{
			Start: day,
			State: totals[day],
			Sum:   accumulated,
		})
	}
	return stats
}

func dayStart(t time.Time) time.Time {
	local := t.Local()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}
