// Package slices contains the state slices of the application:
//
//   - currentUser: the authenticated user (CurrentUser), used by the
//     persistence layer to check that a stored blob belongs to the session
//   - stats.chart.counts: chart data per site and period unit, persisted and
//     validated on load
//   - stats.chart.isLoading: request flags, never persisted
//   - preferences: user preferences, persisted under the "preferences"
//     storage sub-key
//
// Stored data is decoded with mapstructure and unknown fields are rejected,
// so a blob written in an older shape rehydrates the slice to its initial
// state instead of producing a half-valid value.
package slices
