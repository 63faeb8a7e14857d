// Package store defines the persistence interfaces of the study engine.
// Live sessions are never persisted; only the history of completed sessions
// is stored, so a learner can review past summaries and the server can
// report recent results. Implementations live under internal/platform.
package store
