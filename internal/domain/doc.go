// Package domain contains the core vocabulary-study entities and value objects:
// cards, multiple-choice questions, session summaries and the shapes exchanged
// with the deck/progress collaborator. It is independent of any transport or
// storage mechanism.
package domain
