// Package domain contains the core business entities of the to-do service:
// users identified by email and the tasks they own. It holds the validation
// rules and lifecycle transitions (toggle, soft delete) and is independent of
// any storage or delivery mechanism.
package domain
