// Package backup serializes clinic partitions to archive files and
// validates them on the way back in.
//
// Archives are canonical JSON: sorted keys, NFC strings, no HTML escaping,
// every field present (optional ones as explicit null). The same partition
// always produces byte-identical output, which is what makes golden-file
// backup tests and external diffing possible.
//
// Import validates the raw bytes against an embedded CUE schema before the
// store is touched, then checks the schema-version marker, then replaces
// the clinic's partition atomically. Partial or merge import does not
// exist.
package backup
