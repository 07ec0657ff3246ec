// Package events carries task lifecycle notifications from the service layer
// to interested components (metrics today) without the service knowing who
// listens.
//
// The primary components are:
// - TaskEvent: something happened to a task (created, updated, toggled, deleted)
// - EventHandler: interface for components that react to events
// - EventEmitter: interface for components that publish events
package events
