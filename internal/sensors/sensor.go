// Package sensors exposes the two Kaizen Energy series through the
// historical-sensor contract: each adapter takes its mapped series for
// the cycle, rolls it into daily statistics continuing from the last
// stored sum, and hands the batch to the history store.
package sensors

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kaizen-energy/kaizend/internal/models"
	"github.com/kaizen-energy/kaizend/internal/series"
)

// Publisher is the slice of the history store the adapters need. The
// concrete implementation is database.StatisticsStore.
type Publisher interface {
	UpsertStatistics(ctx context.Context, statisticID string, stats []models.Statistic) error
	LatestSumBefore(ctx context.Context, statisticID string, before time.Time) (sum float64, ok bool, err error)
}

// Sensor describes one exposed entity.
type Sensor struct {
	Name        string `json:"name"`
	StatisticID string `json:"statistic_id"`
	Unit        string `json:"unit"`
	DeviceClass string `json:"device_class"`
}

// EnergySensor is the daily energy consumption entity (kWh).
func EnergySensor() Sensor {
	return Sensor{
		Name:        "energy_consumption",
		StatisticID: "sensor.kaizen_energy_consumption",
		Unit:        "kWh",
		DeviceClass: "energy",
	}
}

// CostSensor is the daily cost entity (EUR, the provider's currency).
func CostSensor() Sensor {
	return Sensor{
		Name:        "cost",
		StatisticID: "sensor.kaizen_energy_cost",
		Unit:        "EUR",
		DeviceClass: "monetary",
	}
}

// Adapter publishes one sensor's series into the history store.
type Adapter struct {
	sensor Sensor
	store  Publisher
	logger *logrus.Logger
}

func NewAdapter(sensor Sensor, store Publisher, logger *logrus.Logger) *Adapter {
	return &Adapter{
		sensor: sensor,
		store:  store,
		logger: logger,
	}
}

// Sensor returns the entity description.
func (a *Adapter) Sensor() Sensor {
	return a.sensor
}

// Publish rolls the cycle's series into daily statistics and upserts
// them. The running sum continues from the latest stored sum so the
// accumulating total survives restarts. An empty series publishes
// nothing. On any error nothing is written; previously stored rows are
// left untouched.
func (a *Adapter) Publish(ctx context.Context, points models.Series) error {
	if len(points) == 0 {
		a.logger.WithField("sensor", a.sensor.Name).Debug("No points to publish")
		return nil
	}

	stats := series.DailyStatistics(points, 0)

	// Seed the accumulation from the newest stored row older than the
	// first day being written, so overlapping days replace cleanly.
	lastSum, _, err := a.store.LatestSumBefore(ctx, a.sensor.StatisticID, stats[0].Start)
	if err != nil {
		return fmt.Errorf("failed to read latest sum for %s: %w", a.sensor.StatisticID, err)
	}
	for i := range stats {
		stats[i].Sum += lastSum
	}

	if err := a.store.UpsertStatistics(ctx, a.sensor.StatisticID, stats); err != nil {
		return fmt.Errorf("failed to publish %s: %w", a.sensor.StatisticID, err)
	}

	a.logger.WithFields(logrus.Fields{
		"sensor": a.sensor.Name,
		"days":   len(stats),
	}).Info("Published statistics")
	return nil
}
