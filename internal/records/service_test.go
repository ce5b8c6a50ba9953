package records

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psiclin/psiclin/internal/model"
	"github.com/psiclin/psiclin/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	svc, err := New(st)
	require.NoError(t, err)
	return svc
}

func seedClinicPatient(t *testing.T, svc *Service) (model.Clinic, model.Patient) {
	t.Helper()
	ctx := context.Background()

	clinic, err := svc.CreateClinic(ctx, model.Clinic{Name: "Clínica A"})
	require.NoError(t, err)

	name := "Maria Silva"
	patient, err := svc.CreatePatient(ctx, model.Patient{
		ClinicID: clinic.ID,
		PublicID: "P-001",
		FullName: &name,
	})
	require.NoError(t, err)
	return clinic, patient
}

func newSession(clinicID, patientID string) model.Session {
	return model.Session{
		ClinicID:    clinicID,
		PatientID:   patientID,
		SessionDate: "2024-01-10",
		SessionType: model.TypeAnamnese,
		Mode:        model.ModePresencial,
	}
}

func TestCreateSessionDefaultsAndAudit(t *testing.T) {
	svc := newTestService(t)
	clinic, patient := seedClinicPatient(t, svc)
	ctx := context.Background()

	created, err := svc.CreateSession(ctx, "", newSession(clinic.ID, patient.ID))
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.StatusAgendada, created.Status, "status defaults to agendada")
	assert.Equal(t, model.SystemActor, created.CreatedBy)

	history, err := svc.GetHistoryBySession(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 1, "exactly one created row")
	assert.Equal(t, model.ChangeCreated, history[0].ChangeType)
	assert.Equal(t, model.SystemActor, history[0].ChangedBy)
	assert.Nil(t, history[0].FieldName)
}

func TestUpdateSessionRecordsEveryChangedField(t *testing.T) {
	svc := newTestService(t)
	clinic, patient := seedClinicPatient(t, svc)
	ctx := context.Background()

	created, err := svc.CreateSession(ctx, "dra.ana", newSession(clinic.ID, patient.ID))
	require.NoError(t, err)

	status := model.StatusConcluida
	complaint := "dor de cabeça"
	obs := "paciente colaborativa"
	updated, err := svc.UpdateSession(ctx, "dra.ana", created.ID, model.SessionUpdate{
		Status:        &status,
		MainComplaint: &complaint,
		Observations:  &obs,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusConcluida, updated.Status)

	history, err := svc.GetHistoryBySession(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 4, "1 created + 3 updated rows")

	fields := map[string]model.SessionHistory{}
	for _, h := range history {
		if h.ChangeType == model.ChangeUpdated {
			require.NotNil(t, h.FieldName)
			fields[*h.FieldName] = h
			assert.Equal(t, "dra.ana", h.ChangedBy)
		}
	}
	require.Len(t, fields, 3)

	sc := fields[FieldStatus]
	assert.Equal(t, "agendada", *sc.OldValue)
	assert.Equal(t, "concluida", *sc.NewValue)

	mc := fields[FieldMainComplaint]
	assert.Nil(t, mc.OldValue)
	assert.Equal(t, "dor de cabeça", *mc.NewValue)
}

func TestUpdateSessionNoOpWritesNothing(t *testing.T) {
	svc := newTestService(t)
	clinic, patient := seedClinicPatient(t, svc)
	ctx := context.Background()

	created, err := svc.CreateSession(ctx, "", newSession(clinic.ID, patient.ID))
	require.NoError(t, err)

	// Re-assert current values.
	date := created.SessionDate
	status := created.Status
	got, err := svc.UpdateSession(ctx, "dra.ana", created.ID, model.SessionUpdate{
		SessionDate: &date,
		Status:      &status,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	history, err := svc.GetHistoryBySession(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1, "no-op update must not append audit rows")
}

func TestUpdateSessionRejectedTransitionLeavesNoTrace(t *testing.T) {
	svc := newTestService(t)
	clinic, patient := seedClinicPatient(t, svc)
	ctx := context.Background()

	created, err := svc.CreateSession(ctx, "", newSession(clinic.ID, patient.ID))
	require.NoError(t, err)

	done := model.StatusConcluida
	_, err = svc.UpdateSession(ctx, "dra.ana", created.ID, model.SessionUpdate{Status: &done})
	require.NoError(t, err)

	back := model.StatusAgendada
	_, err = svc.UpdateSession(ctx, "dra.ana", created.ID, model.SessionUpdate{Status: &back})
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))

	history, err := svc.GetHistoryBySession(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2, "rejected update must not append audit rows")
}

func TestDeleteSessionRetainsHistory(t *testing.T) {
	svc := newTestService(t)
	clinic, patient := seedClinicPatient(t, svc)
	ctx := context.Background()

	created, err := svc.CreateSession(ctx, "dra.ana", newSession(clinic.ID, patient.ID))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSession(ctx, "dra.ana", created.ID))

	_, err = svc.GetSessionByID(ctx, created.ID)
	assert.True(t, model.IsNotFound(err))

	history, err := svc.GetHistoryBySession(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.ChangeDeleted, history[0].ChangeType, "newest first")
	assert.Equal(t, model.ChangeCreated, history[1].ChangeType)
}

func TestHistorySeqBreaksTimestampTies(t *testing.T) {
	svc := newTestService(t)
	clinic, patient := seedClinicPatient(t, svc)
	ctx := context.Background()

	created, err := svc.CreateSession(ctx, "", newSession(clinic.ID, patient.ID))
	require.NoError(t, err)

	// Burst of updates inside timer resolution.
	for i, c := range []string{"a", "b", "c", "d"} {
		complaint := c
		_, err := svc.UpdateSession(ctx, "dra.ana", created.ID, model.SessionUpdate{MainComplaint: &complaint})
		require.NoError(t, err, "update %d", i)
	}

	history, err := svc.GetHistoryBySession(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 5)

	for i := 0; i < len(history)-1; i++ {
		assert.Greater(t, history[i].Seq, history[i+1].Seq,
			"display order must be strictly by descending seq within equal timestamps")
	}
	// Newest entry is the last update applied.
	assert.Equal(t, "d", *history[0].NewValue)
}

func TestGetPatientsByClinicPortugueseOrdering(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	clinic, err := svc.CreateClinic(ctx, model.Clinic{Name: "Clínica A"})
	require.NoError(t, err)

	add := func(publicID string, name *string) {
		_, err := svc.CreatePatient(ctx, model.Patient{
			ClinicID: clinic.ID,
			PublicID: publicID,
			FullName: name,
		})
		require.NoError(t, err)
	}

	carlos := "Carlos"
	ana := "ana"
	alvaro := "Álvaro"
	add("P-001", &carlos)
	add("P-002", &ana)
	add("P-003", &alvaro)
	add("P-004", nil) // unnamed collates first

	patients, err := svc.GetPatientsByClinic(ctx, clinic.ID)
	require.NoError(t, err)
	require.Len(t, patients, 4)

	order := []string{patients[0].PublicID, patients[1].PublicID, patients[2].PublicID, patients[3].PublicID}
	assert.Equal(t, []string{"P-004", "P-003", "P-002", "P-001"}, order,
		"accent and case must not break alphabetical order")
}

func TestUpdateSessionConflictOnHeldLock(t *testing.T) {
	svc := newTestService(t)
	clinic, patient := seedClinicPatient(t, svc)
	ctx := context.Background()

	created, err := svc.CreateSession(ctx, "", newSession(clinic.ID, patient.ID))
	require.NoError(t, err)

	// Hold the record's mutation lock from outside.
	release, err := svc.locks.acquire(ctx, "session", created.ID)
	require.NoError(t, err)
	defer release()

	svc.LockTimeout = 20 * time.Millisecond
	status := model.StatusConcluida
	_, err = svc.UpdateSession(ctx, "dra.ana", created.ID, model.SessionUpdate{Status: &status})
	require.Error(t, err)
	assert.True(t, model.IsConflict(err))
}

func TestConcurrentDisjointFieldUpdates(t *testing.T) {
	svc := newTestService(t)
	clinic, patient := seedClinicPatient(t, svc)
	ctx := context.Background()

	created, err := svc.CreateSession(ctx, "", newSession(clinic.ID, patient.ID))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		complaint := "dor de cabeça"
		_, errs[0] = svc.UpdateSession(ctx, "dra.ana", created.ID, model.SessionUpdate{MainComplaint: &complaint})
	}()
	go func() {
		defer wg.Done()
		obs := "paciente colaborativa"
		_, errs[1] = svc.UpdateSession(ctx, "dr.joao", created.ID, model.SessionUpdate{Observations: &obs})
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// Both updates landed; neither overwrote the other.
	final, err := svc.GetSessionByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, final.MainComplaint)
	require.NotNil(t, final.Observations)

	history, err := svc.GetHistoryBySession(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, history, 3, "1 created + 2 updated")
}

func TestImportClinicAdvancesClock(t *testing.T) {
	src := newTestService(t)
	clinic, patient := seedClinicPatient(t, src)
	ctx := context.Background()

	created, err := src.CreateSession(ctx, "", newSession(clinic.ID, patient.ID))
	require.NoError(t, err)
	status := model.StatusConcluida
	_, err = src.UpdateSession(ctx, "dra.ana", created.ID, model.SessionUpdate{Status: &status})
	require.NoError(t, err)

	archive, err := src.ExportClinic(ctx, clinic.ID)
	require.NoError(t, err)

	var maxSeq int64
	for _, h := range archive.History {
		if h.Seq > maxSeq {
			maxSeq = h.Seq
		}
	}
	require.Greater(t, maxSeq, int64(0))

	dst := newTestService(t)
	require.NoError(t, dst.ImportClinic(ctx, archive))

	// New mutations must continue after the imported trail.
	sess2, err := dst.CreateSession(ctx, "", newSession(clinic.ID, patient.ID))
	require.NoError(t, err)
	history, err := dst.GetHistoryBySession(ctx, sess2.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Greater(t, history[0].Seq, maxSeq)
}
