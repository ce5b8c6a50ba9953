package model

import "time"

// ClinicArchive is the full serialized partition of one clinic: every entity
// the clinic owns plus the schema version the data was written under.
//
// Archives are the unit of backup and restore. Import replaces the whole
// partition atomically; partial or merge import does not exist.
type ClinicArchive struct {
	SchemaVersion int       `json:"schema_version"`
	ExportedAt    time.Time `json:"exported_at"`

	Clinic      Clinic              `json:"clinic"`
	Patients    []Patient           `json:"patients"`
	Sessions    []Session           `json:"sessions"`
	Attachments []SessionAttachment `json:"attachments"`
	History     []SessionHistory    `json:"history"`
}
