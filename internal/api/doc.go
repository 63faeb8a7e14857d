// Package api serves the study engine over HTTP. Handlers translate requests
// into session Manager calls and render sessions, answers, summaries and
// history as JSON; errors are mapped to status codes and safe messages so
// internal details never reach clients.
package api
