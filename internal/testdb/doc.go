// Package testdb provides utilities for PostgreSQL integration tests.
//
// Tests that use it are guarded by the "integration" build tag and skip when
// no database URL is configured:
//
//	//go:build integration
//
//	func TestSomething(t *testing.T) {
//		db := testdb.GetTestDBWithT(t)
//		testdb.SetupTestDatabaseSchema(t, db)
//
//		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//			// everything written through tx is rolled back afterwards
//		})
//	}
//
// The database URL is read from DATABASE_URL, then TODO_TEST_DB_URL.
package testdb
