package poller

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaizen-energy/kaizend/internal/models"
	"github.com/kaizen-energy/kaizend/internal/sensors"
	"github.com/kaizen-energy/kaizend/internal/tridens"
)

type fakeFetcher struct {
	mu      sync.Mutex
	events  []models.UsageEvent
	err     error
	calls   int
	block   chan struct{} // when set, FetchUsageEvents blocks until closed
	started chan struct{}
}

func (f *fakeFetcher) FetchUsageEvents(ctx context.Context, start, end time.Time) ([]models.UsageEvent, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	if f.block != nil {
		<-f.block
	}
	return f.events, f.err
}

type fakeStore struct {
	mu   sync.Mutex
	rows map[string][]models.Statistic
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string][]models.Statistic{}}
}

func (s *fakeStore) UpsertStatistics(ctx context.Context, statisticID string, stats []models.Statistic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[statisticID] = append(s.rows[statisticID], stats...)
	return nil
}

func (s *fakeStore) LatestSumBefore(ctx context.Context, statisticID string, before time.Time) (float64, bool, error) {
	return 0, false, nil
}

func newTestPoller(fetcher *fakeFetcher, store *fakeStore) *Poller {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	energy := sensors.NewAdapter(sensors.EnergySensor(), store, logger)
	cost := sensors.NewAdapter(sensors.CostSensor(), store, logger)
	return New(fetcher, energy, cost, 15*24*time.Hour, logger, NewMetrics())
}

func TestRunCyclePublishesBothSeries(t *testing.T) {
	fetcher := &fakeFetcher{
		events: []models.UsageEvent{
			{TimeOfRead: time.Now(), Quantity: 5.2, Cost: 1.10},
		},
	}
	store := newFakeStore()
	p := newTestPoller(fetcher, store)

	require.NoError(t, p.RunCycle(context.Background()))

	assert.Len(t, store.rows[sensors.EnergySensor().StatisticID], 1)
	assert.Len(t, store.rows[sensors.CostSensor().StatisticID], 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.Cycles.WithLabelValues("success")))
}

func TestRunCycleAbortsWithoutPublishingOnFetchError(t *testing.T) {
	fetcher := &fakeFetcher{err: &tridens.UpstreamError{StatusCode: 500, Endpoint: "/usage-events", Message: "boom"}}
	store := newFakeStore()
	p := newTestPoller(fetcher, store)

	err := p.RunCycle(context.Background())
	require.Error(t, err)

	var upstreamErr *tridens.UpstreamError
	assert.ErrorAs(t, err, &upstreamErr)
	assert.Empty(t, store.rows)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.Cycles.WithLabelValues("error")))
}

func TestRunCycleAuthFailureAborts(t *testing.T) {
	fetcher := &fakeFetcher{err: &tridens.AuthError{StatusCode: 401, Message: "rejected"}}
	store := newFakeStore()
	p := newTestPoller(fetcher, store)

	err := p.RunCycle(context.Background())
	require.Error(t, err)
	assert.True(t, tridens.IsAuthFailure(err))
	assert.Empty(t, store.rows)
}

func TestOverlappingCycleIsSkipped(t *testing.T) {
	fetcher := &fakeFetcher{
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	started := fetcher.started
	store := newFakeStore()
	p := newTestPoller(fetcher, store)

	done := make(chan error, 1)
	go func() { done <- p.RunCycle(context.Background()) }()
	<-started

	// Second invocation while the first is in flight: skipped, not queued.
	require.NoError(t, p.RunCycle(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.Cycles.WithLabelValues("skipped")))

	close(fetcher.block)
	require.NoError(t, <-done)

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	assert.Equal(t, 1, fetcher.calls)
}
