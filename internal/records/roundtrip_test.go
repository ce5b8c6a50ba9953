package records_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psiclin/psiclin/internal/backup"
	"github.com/psiclin/psiclin/internal/model"
	"github.com/psiclin/psiclin/internal/testutil"
)

// Export -> encode -> decode -> import into a second service must reproduce
// the partition byte for byte.
func TestExportImportRoundtrip(t *testing.T) {
	ctx := context.Background()
	src := testutil.NewService(t)

	clinic, err := src.CreateClinic(ctx, model.Clinic{Name: "Clínica Aurora"})
	require.NoError(t, err)

	patient, err := src.CreatePatient(ctx, model.Patient{
		ClinicID: clinic.ID,
		PublicID: "P-001",
		FullName: testutil.StrPtr("Maria Silva"),
	})
	require.NoError(t, err)

	sess, err := src.CreateSession(ctx, "dra.ana", model.Session{
		ClinicID:          clinic.ID,
		PatientID:         patient.ID,
		SessionDate:       "2024-01-10",
		SessionType:       model.TypeAnamnese,
		Mode:              model.ModePresencial,
		Status:            model.StatusAgendada,
		ScheduledDuration: testutil.IntPtr(50),
	})
	require.NoError(t, err)

	status := model.StatusConcluida
	_, err = src.UpdateSession(ctx, "dra.ana", sess.ID, model.SessionUpdate{
		Status:        &status,
		MainComplaint: testutil.StrPtr("dor de cabeça"),
	})
	require.NoError(t, err)

	archive, err := src.ExportClinic(ctx, clinic.ID)
	require.NoError(t, err)
	archive.ExportedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	data, err := backup.Encode(archive)
	require.NoError(t, err)

	decoded, err := backup.Decode(data)
	require.NoError(t, err)

	dst := testutil.NewService(t)
	require.NoError(t, dst.ImportClinic(ctx, decoded))

	patients, err := dst.GetPatientsByClinic(ctx, clinic.ID)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	require.NotNil(t, patients[0].FullName)
	assert.Equal(t, "Maria Silva", *patients[0].FullName)

	history, err := dst.GetHistoryBySession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, history, 3) // created + status + main_complaint

	reExported, err := dst.ExportClinic(ctx, clinic.ID)
	require.NoError(t, err)
	reExported.ExportedAt = archive.ExportedAt

	reData, err := backup.Encode(reExported)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(reData))
}
