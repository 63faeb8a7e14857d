// Package task runs fire-and-forget background work on a bounded queue served
// by a fixed pool of workers. The study engine uses it to forward answer
// telemetry and to record completed sessions without blocking the learner.
package task
