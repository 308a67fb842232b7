// Package sqlite stores upload history in a local SQLite database.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. The schema is managed through versioned migrations
// embedded from the migrations/ directory.
//
// # Data Location
//
// By default, the database is stored at ~/.recorder/data/recorder.db
package sqlite
