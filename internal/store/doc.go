// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic. Implementations live under internal/platform
// (postgres and the embedded sqlite document store).
package store
