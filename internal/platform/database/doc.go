// Package database implements store.SessionHistoryStore on top of sqlx.
//
// Two dialects are supported: PostgreSQL through the pgx stdlib driver and
// SQLite through the pure-Go modernc driver. Queries are written with '?'
// placeholders and rebound for the active driver. The schema is embedded and
// applied with goose.
package database
