// Package database provides connection pool management for the optional
// frame archive's PostgreSQL instance.
package database
