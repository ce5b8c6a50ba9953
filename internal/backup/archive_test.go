package backup

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psiclin/psiclin/internal/model"
)

func archiveFixture() model.ClinicArchive {
	t0 := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	name := "Maria Silva"
	complaint := "dor de cabeça"

	return model.ClinicArchive{
		SchemaVersion: 1,
		ExportedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Clinic: model.Clinic{
			ID:        "c1",
			Name:      "Clínica Aurora",
			CreatedAt: t0,
			UpdatedAt: t0,
		},
		Patients: []model.Patient{{
			ID:        "p1",
			ClinicID:  "c1",
			PublicID:  "P-001",
			FullName:  &name,
			Gender:    "feminino",
			BirthDate: "1990-03-15",
			CreatedAt: t0,
			UpdatedAt: t0,
		}},
		Sessions: []model.Session{{
			ID:            "s1",
			ClinicID:      "c1",
			PatientID:     "p1",
			CreatedBy:     "sistema",
			SessionDate:   "2024-01-10",
			SessionType:   model.TypeAnamnese,
			Mode:          model.ModePresencial,
			Status:        model.StatusConcluida,
			MainComplaint: &complaint,
			CreatedAt:     t0,
			UpdatedAt:     t0,
		}},
		Attachments: []model.SessionAttachment{},
		History: []model.SessionHistory{{
			ID:         "h1",
			SessionID:  "s1",
			ClinicID:   "c1",
			ChangedBy:  "sistema",
			ChangeType: model.ChangeCreated,
			ChangedAt:  t0,
			Seq:        1,
		}},
	}
}

func TestEncodeDeterministic(t *testing.T) {
	a := archiveFixture()

	first, err := Encode(a)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Encode(a)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestEncodeGolden(t *testing.T) {
	data, err := Encode(archiveFixture())
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "clinic_archive", data)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	a := archiveFixture()

	data, err := Encode(a)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, a.SchemaVersion, got.SchemaVersion)
	assert.Equal(t, a.Clinic.ID, got.Clinic.ID)
	assert.Equal(t, a.Clinic.Name, got.Clinic.Name)
	require.Len(t, got.Patients, 1)
	require.NotNil(t, got.Patients[0].FullName)
	assert.Equal(t, "Maria Silva", *got.Patients[0].FullName)
	require.Len(t, got.Sessions, 1)
	assert.Equal(t, model.StatusConcluida, got.Sessions[0].Status)
	require.NotNil(t, got.Sessions[0].MainComplaint)
	assert.Equal(t, "dor de cabeça", *got.Sessions[0].MainComplaint)
	require.Len(t, got.History, 1)
	assert.Equal(t, int64(1), got.History[0].Seq)
}

func TestDecodeRejectsUnknownEnum(t *testing.T) {
	data, err := Encode(archiveFixture())
	require.NoError(t, err)

	bad := strings.Replace(string(data), `"anamnese"`, `"consulta"`, 1)
	_, err = Decode([]byte(bad))
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
	assert.Contains(t, err.Error(), "session_type")
}

func TestDecodeRejectsWrongType(t *testing.T) {
	data, err := Encode(archiveFixture())
	require.NoError(t, err)

	bad := strings.Replace(string(data), `"schema_version":1`, `"schema_version":"one"`, 1)
	_, err = Decode([]byte(bad))
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
}

func TestDecodeRejectsIncompleteArchive(t *testing.T) {
	_, err := Decode([]byte(`{"schema_version":1}`))
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
}

func TestDecodeRejectsNonJSON(t *testing.T) {
	_, err := Decode([]byte("definitely: not json"))
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
}

func TestWriteReadFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clinic.json")
	a := archiveFixture()

	require.NoError(t, WriteFile(path, a))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, a.Clinic.ID, got.Clinic.ID)
	require.Len(t, got.Patients, 1)
}
