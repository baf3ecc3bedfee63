//go:build !sqlite_cgo

package repository

// Pure Go SQLite driver. No C toolchain needed:
//
//	CGO_ENABLED=0 go build ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// SQLiteDriverName is the database/sql driver used by SQLiteStore.
	SQLiteDriverName = "sqlite"

	// SQLiteBuildMode describes the current build configuration
	SQLiteBuildMode = "purego"
)
