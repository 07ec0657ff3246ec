// Package taskquery implements listing of a user's tasks: filtering,
// sorting and pagination layered over a store.TaskStore.
//
// The store is asked for the equality part of a query (owner, active flag,
// completion state) and, when it can, for native ordering. Everything a
// document store cannot do natively (date ranges, title substring matching,
// ordering on unindexed fields) happens here in memory.
package taskquery
