// Package events provides an in-process publish/subscribe seam between the
// study-session engine and the components reacting to it.
//
// When a session completes, the session manager emits a session.completed
// Event; the history recorder turns it into a stored session record. Emitters
// do not know which handlers are registered, so new reactions can be added
// without touching the engine.
package events
