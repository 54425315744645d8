//go:build !cgo

package sql

// Without cgo the go-sqlite3 driver cannot open a database, so sqlite3
// errors can never occur and there is nothing to retry.
func checkSqlite3RetryError(err error) bool {
	return false
}
