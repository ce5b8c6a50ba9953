package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/psiclin/psiclin/internal/model"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	c, err := s1.CreateClinic(context.Background(), model.Clinic{Name: "Clínica A"})
	if err != nil {
		t.Fatalf("CreateClinic() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	got, err := s2.GetClinic(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("GetClinic() after reopen failed: %v", err)
	}
	if got.Name != "Clínica A" {
		t.Errorf("clinic name = %q, want %q", got.Name, "Clínica A")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() #%d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestSchemaVersion(t *testing.T) {
	s := openTestStore(t)

	v, err := s.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion() failed: %v", err)
	}
	if v != currentSchemaVersion {
		t.Errorf("schema version = %d, want %d", v, currentSchemaVersion)
	}
}

// openTestStore opens a fresh in-memory store for a test.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedClinic creates a clinic or fails the test.
func seedClinic(t *testing.T, s *Store, name string) model.Clinic {
	t.Helper()
	c, err := s.CreateClinic(context.Background(), model.Clinic{Name: name})
	if err != nil {
		t.Fatalf("CreateClinic(%q) failed: %v", name, err)
	}
	return c
}

// seedPatient creates a patient or fails the test.
func seedPatient(t *testing.T, s *Store, clinicID, publicID string) model.Patient {
	t.Helper()
	p, err := s.CreatePatient(context.Background(), model.Patient{
		ClinicID: clinicID,
		PublicID: publicID,
	})
	if err != nil {
		t.Fatalf("CreatePatient(%q) failed: %v", publicID, err)
	}
	return p
}

// seedSession creates a session with one created history row, or fails.
func seedSession(t *testing.T, s *Store, clinicID, patientID, date string) model.Session {
	t.Helper()
	sess := model.Session{
		ID:          model.NewID(),
		ClinicID:    clinicID,
		PatientID:   patientID,
		CreatedBy:   model.SystemActor,
		SessionDate: date,
		SessionType: model.TypeAnamnese,
		Mode:        model.ModePresencial,
		Status:      model.StatusAgendada,
	}
	created, err := s.CreateSession(context.Background(), sess, []model.SessionHistory{
		historyRowFor(sess, 1),
	})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return created
}

func historyRowFor(sess model.Session, seq int64) model.SessionHistory {
	return model.SessionHistory{
		SessionID:  sess.ID,
		ClinicID:   sess.ClinicID,
		ChangedBy:  model.SystemActor,
		ChangeType: model.ChangeCreated,
		Seq:        seq,
	}
}
