// Package harness runs YAML-defined scenarios against the records facade.
//
// A scenario describes a clinical workflow as a sequence of operations
// (register a patient, create a session, update its fields, delete it) plus
// assertions over the resulting trace and final state. Each scenario runs
// in a fresh in-memory database, and generated record ids are hidden behind
// scenario-local refs, so the trace a scenario produces is deterministic
// and can be pinned with a golden file.
package harness
