// Package kaizend implements the Kaizen Energy data service for the
// Tridens Monetization API.
//
// # Architecture
//
// The service is structured into several key packages:
//   - tridens: API client (authentication, customer resolution, usage events)
//   - series: mapping of usage events into energy and cost series
//   - sensors: historical-sensor adapters publishing daily statistics
//   - database: TimescaleDB-backed statistics storage
//   - poller: the daily authenticate-fetch-map-publish cycle
//   - scheduler: cron-driven cycle triggering
//   - web: HTTP read API with metrics
//
// Key Features
//
//   - Historical Data:
//     The service bootstraps a configurable backfill window on startup
//     and maintains the series through one fetch cycle per day.
//
//   - Idempotent Publishing:
//     Daily statistics are upserted; re-fetched days replace their
//     previous rows and the accumulating sum stays consistent.
//
//   - Failure Isolation:
//     A failed cycle publishes nothing and leaves stored history
//     untouched; the next scheduled cycle retries.
//
// For more information about specific packages, see their respective
// documentation.
package kaizend
