// Package poller runs the daily fetch cycle: ensure a valid session,
// fetch usage events, map them into the energy and cost series, and
// publish both through the sensor adapters.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/kaizen-energy/kaizend/internal/models"
	"github.com/kaizen-energy/kaizend/internal/sensors"
	"github.com/kaizen-energy/kaizend/internal/series"
	"github.com/kaizen-energy/kaizend/internal/tridens"
)

const cycleTimeout = 2 * time.Minute

// UsageFetcher is the slice of the Tridens client the poller needs.
type UsageFetcher interface {
	FetchUsageEvents(ctx context.Context, start, end time.Time) ([]models.UsageEvent, error)
}

// Metrics counts cycle outcomes for the /metrics endpoint.
type Metrics struct {
	Cycles *prometheus.CounterVec
}

// NewMetrics creates the poller's metrics, registered by the caller.
func NewMetrics() *Metrics {
	return &Metrics{
		Cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kaizend_cycles_total",
				Help: "Fetch cycles by outcome (success, error, skipped).",
			},
			[]string{"outcome"},
		),
	}
}

// Poller executes fetch cycles. Runs are non-reentrant: a cycle that
// starts while another is in flight is skipped, not queued.
type Poller struct {
	fetcher UsageFetcher
	energy  *sensors.Adapter
	cost    *sensors.Adapter
	window  time.Duration
	logger  *logrus.Logger
	metrics *Metrics

	mu sync.Mutex
}

// New creates a poller fetching the trailing window on every cycle.
func New(fetcher UsageFetcher, energy, cost *sensors.Adapter, window time.Duration, logger *logrus.Logger, metrics *Metrics) *Poller {
	return &Poller{
		fetcher: fetcher,
		energy:  energy,
		cost:    cost,
		window:  window,
		logger:  logger,
		metrics: metrics,
	}
}

// RunCycle executes one authenticate-fetch-map-publish sequence over
// the trailing window. Any failure aborts the cycle without publishing
// anything; stored statistics stay as they were and the next scheduled
// run retries. Overlapping invocations are skipped.
func (p *Poller) RunCycle(ctx context.Context) error {
	return p.run(ctx, p.window)
}

// Bootstrap backfills the given window once at startup.
func (p *Poller) Bootstrap(ctx context.Context, window time.Duration) error {
	return p.run(ctx, window)
}

func (p *Poller) run(ctx context.Context, window time.Duration) error {
	if !p.mu.TryLock() {
		p.logger.Warn("Previous cycle still running, skipping")
		p.metrics.Cycles.WithLabelValues("skipped").Inc()
		return nil
	}
	defer p.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	end := time.Now()
	start := end.Add(-window)

	events, err := p.fetcher.FetchUsageEvents(ctx, start, end)
	if err != nil {
		p.metrics.Cycles.WithLabelValues("error").Inc()
		if tridens.IsAuthFailure(err) {
			p.logger.WithError(err).Error("Cycle aborted: authentication failure")
		} else {
			p.logger.WithError(err).Error("Cycle aborted: fetch failed")
		}
		return err
	}

	energySeries, costSeries := series.MapEvents(events)

	if err := p.energy.Publish(ctx, energySeries); err != nil {
		p.metrics.Cycles.WithLabelValues("error").Inc()
		return fmt.Errorf("energy publish: %w", err)
	}
	if err := p.cost.Publish(ctx, costSeries); err != nil {
		p.metrics.Cycles.WithLabelValues("error").Inc()
		return fmt.Errorf("cost publish: %w", err)
	}

	p.metrics.Cycles.WithLabelValues("success").Inc()
	p.logger.WithFields(logrus.Fields{
		"events": len(events),
		"window": window.String(),
	}).Info("Cycle completed")
	return nil
}
