// Package testdb opens migrated session history databases for tests.
//
// Every database is isolated: sqlite tests get a private in-memory database,
// postgres tests get a private schema that is dropped when the test ends, so
// tests may run with t.Parallel().
//
// Postgres tests only run when STUDY_TEST_DATABASE_URL is set:
//
//	func TestSomething(t *testing.T) {
//	    for _, driver := range testdb.Drivers() {
//	        t.Run(driver, func(t *testing.T) {
//	            db := testdb.Open(t, driver)
//	            // use db...
//	        })
//	    }
//	}
package testdb
