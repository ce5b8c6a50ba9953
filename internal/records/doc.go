// Package records exposes the use-case operations the application performs
// on clinical records, composing the store with automatic audit recording.
//
// The Service is the only write path for sessions. Every session mutation:
//
//  1. Acquires the per-record mutation lock for the session id, so at most
//     one read-modify-write is in flight per record at a time. Lock
//     contention past the caller's deadline surfaces as a ConflictError.
//  2. Stamps audit rows with a monotonic logical sequence assigned under
//     the lock, so the recorded trail orders exactly as mutations applied
//     even when wall-clock timestamps collide.
//  3. Hands the merged record and its audit rows to the store, which
//     commits them in one transaction.
//
// Updates are diffed field-by-field against the stored values: only fields
// whose value actually changed produce an audit row. Fields present in the
// update call but equal to the stored value produce nothing.
//
// Reads do not lock; they may observe a record mid-way between two
// mutations of other records but never a partially written one.
package records
