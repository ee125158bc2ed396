// Package cache holds fetched backend resources for a bounded freshness window.
//
// The client fetches the vehicle list and per-vehicle telemetry far more often than the data
// changes: the list view refetches on focus and on pull-to-refresh, and prefetches telemetry for
// every listed vehicle. A [QueryCache] absorbs that churn. [QueryCache.Get] serves an entry only
// while it is younger than the freshness window; [QueryCache.Peek] also serves stale entries,
// which the list view uses to show the best known battery level while a refetch is in flight.
//
// A forced refresh bypasses the window by calling [QueryCache.Invalidate] before refetching.
// Entries are plain in-memory values; nothing in this package is persisted.
package cache
