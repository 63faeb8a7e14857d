// Package study implements the adaptive study-session engine.
//
// Given a deck's cards and the collaborator's initial due/learning/new queues,
// a Session decides which card to quiz next (Scheduler), builds a
// multiple-choice question for it (QuestionBuilder), scores the learner's
// choice and re-queues failed cards with escalating weight, drives a
// cancellable auto-advance countdown after correct answers (AutoAdvance) and,
// once the question limit is reached or no eligible card remains, computes the
// session summary and the carry-over set for the next session.
//
// A Session is the single owner of its scheduling state. Every entry point
// (HTTP handlers, the auto-advance callback, telemetry workers) goes through
// the session mutex, and side effects such as answer telemetry are dispatched
// only after the mutex has been released.
//
// All randomness (question mode, distractor sampling, choice order, old-card
// borrowing, fallback draws) comes from an injected *rand.Rand so tests can
// assert exact sequences.
package study
