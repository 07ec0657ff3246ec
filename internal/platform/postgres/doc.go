// Package postgres implements the store interfaces on PostgreSQL through the
// pgx stdlib driver.
//
// Stores accept a store.DBTX so they can run on a *sql.DB or inside a
// caller-owned *sql.Tx. Tasks can be ordered natively by created_at and
// updated_at, which are indexed; ordering by title returns
// store.ErrOrderUnavailable and is left to the caller.
//
// Schema migrations are embedded and exposed through Migrations.
package postgres
