// Package session owns the live study sessions of the server.
//
// A Manager keeps every running study.Session keyed by its handle, checks
// that callers only touch their own sessions, restarts completed sessions
// with their carry-over set, tears sessions down on request, on sign-out and
// when idle, and records completed sessions to history through the event
// emitter.
package session
