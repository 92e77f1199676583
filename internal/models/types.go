package models

import "time"

// UsageEvent is a single daily meter reading reported by the Tridens
// Monetization API. Quantity is the consumed energy in kWh, Cost the
// billed amount after discounts.
type UsageEvent struct {
	TimeOfRead time.Time `json:"time_of_read"`
	Quantity   float64   `json:"quantity"`
	Cost       float64   `json:"cost"`
}

// Point represents a single time series data point
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Series is an ordered sequence of points sharing one unit.
type Series []Point

// Statistic is one day of an accumulating statistic: the day's total
// plus the running sum up to and including that day.
type Statistic struct {
	Start time.Time `json:"start"`
	State float64   `json:"state"`
	Sum   float64   `json:"sum"`
}
