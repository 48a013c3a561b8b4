// Package aggregates defines domain-facing aggregate contracts.
//
// Contracts avoid persistence and transport details; each write method is an
// atomic boundary for the member aggregate invariants.
package aggregates
