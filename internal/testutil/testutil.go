// Package testutil provides shared fixtures for store and service tests.
package testutil

import (
	"context"
	"testing"

	"github.com/psiclin/psiclin/internal/model"
	"github.com/psiclin/psiclin/internal/records"
	"github.com/psiclin/psiclin/internal/store"
)

// NewStore opens a fresh in-memory store, closed when the test ends.
func NewStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// NewService builds a records service over a fresh in-memory store.
func NewService(t *testing.T) *records.Service {
	t.Helper()
	svc, err := records.New(NewStore(t))
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return svc
}

// SeedClinic creates a clinic for tests.
func SeedClinic(t *testing.T, st *store.Store, name string) model.Clinic {
	t.Helper()
	c, err := st.CreateClinic(context.Background(), model.Clinic{Name: name})
	if err != nil {
		t.Fatalf("seed clinic: %v", err)
	}
	return c
}

// SeedPatient creates a patient in the given clinic.
func SeedPatient(t *testing.T, st *store.Store, clinicID, publicID string, fullName *string) model.Patient {
	t.Helper()
	p, err := st.CreatePatient(context.Background(), model.Patient{
		ClinicID: clinicID,
		PublicID: publicID,
		FullName: fullName,
	})
	if err != nil {
		t.Fatalf("seed patient: %v", err)
	}
	return p
}

// StrPtr returns a pointer to s. Pointer fields make literals awkward.
func StrPtr(s string) *string { return &s }

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }
