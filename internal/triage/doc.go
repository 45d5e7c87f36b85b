// Package triage is the business boundary for Remedy's alert triage system.
// It defines the Engine (the per-alert pipeline state machine), the
// Coordinator (cluster-level dedup and fan-out), the Service (batch and
// single-alert lifecycle, async dispatch), and the Store interface
// (persistence).
package triage
