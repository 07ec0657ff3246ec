// Package sqlite is an embedded document store for development and tests.
//
// Users and tasks are kept as JSON documents in a single documents table,
// keyed by collection and id. Equality filters run through json_extract.
// Only createdAt has an ordering index, so FindTasks answers
// store.ErrOrderUnavailable for every other order field. Task documents
// written before the active flag existed are read as active.
package sqlite
