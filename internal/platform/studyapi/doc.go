// Package studyapi is the HTTP client for the deck/progress collaborator that
// owns decks, cards and per-card review progress. It opens study sessions,
// forwards answer telemetry and fetches authoritative session summaries.
//
// Every request carries the caller's bearer token. A 401 or 403 response is
// reported as an error wrapping ErrUnauthorized so the study engine can end
// the session and sign the user out.
package studyapi
