// Package model defines the entity types stored by psiclin and the typed
// errors shared across packages.
//
// Five entity kinds exist:
//
//   - Clinic: the tenant root. Every other entity belongs to exactly one
//     clinic and is only ever queried within it.
//   - Patient: a person under care. PublicID is the de-identified display
//     code, safe to render anywhere. FullName is the only PII field and is
//     gated by the privacy package.
//   - Session: a clinical session for a patient in the same clinic.
//   - SessionAttachment: a file attached to a session. Lifecycle-bound to
//     its session (deleted with it).
//   - SessionHistory: an append-only audit row describing a session
//     mutation. Rows are created, never updated or deleted.
//
// All ids are UUIDv7 strings: time-sortable, so ordering ties broken by id
// follow creation order.
package model
