// Package service contains the application layer of the study engine.
//
// Subpackages hold the use cases: auth validates callers and remembers
// sign-outs, session owns the live study sessions of every caller. Both
// depend on domain types and store interfaces, never on a concrete
// infrastructure implementation; the server wires those in.
//
// Errors shared across services live here so the API layer can map them to
// status codes without importing every subpackage.
package service
