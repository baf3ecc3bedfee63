//go:build sqlite_cgo

package repository

// CGO SQLite driver, selected with the sqlite_cgo tag:
//
//	CGO_ENABLED=1 go build -tags "sqlite_cgo" ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// SQLiteDriverName is the database/sql driver used by SQLiteStore.
	SQLiteDriverName = "sqlite3"

	// SQLiteBuildMode describes the current build configuration
	SQLiteBuildMode = "cgo"
)
