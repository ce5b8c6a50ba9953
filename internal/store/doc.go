// Package store provides SQLite-backed durable storage for clinical records.
//
// The store holds five entity kinds in one local database file:
//   - Clinics: tenant roots
//   - Patients: clinic-scoped, with a unique public_id per clinic
//   - Sessions: clinic-scoped, referencing a patient in the same clinic
//   - Session attachments: lifecycle-bound to their session
//   - Session history: append-only audit rows (never updated or deleted)
//
// # Isolation
//
// Every list of a clinic-scoped kind filters on clinic_id in SQL. A query
// scoped to clinic A never returns rows belonging to clinic B even when both
// partitions co-reside in the same file.
//
// # Atomicity
//
// Partial-field updates run read-merge-write inside a transaction; a failed
// update leaves the prior row fully intact. Session mutations write their
// history rows in the same transaction, so a session change and its audit
// trail land together or not at all. Deleting a session removes its
// attachments in the same transaction (and the schema enforces it with
// ON DELETE CASCADE); its history rows survive on purpose.
//
// # Ordering
//
// All list queries carry a deterministic ORDER BY with an id tie-break, so
// identical state always yields identical sequences.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// The schema version is tracked in PRAGMA user_version and gates both
// migrations on open and archive compatibility on import.
package store
