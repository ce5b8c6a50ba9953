package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommandRejectsInvalidFormat(t *testing.T) {
	_, err := runCommand(t, "--format", "xml", "clinic", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestInitCreatesDatabaseAndClinic(t *testing.T) {
	db := filepath.Join(t.TempDir(), "clinic.db")

	out, err := runCommand(t, "--db", db, "init", "--name", "Consultório Ana")
	require.NoError(t, err)
	assert.Contains(t, out, "Consultório Ana")

	out, err = runCommand(t, "--db", db, "clinic", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Consultório Ana")
	assert.Contains(t, out, "1 clinic(s)")
}

func TestPatientLifecycleThroughCLI(t *testing.T) {
	db := filepath.Join(t.TempDir(), "clinic.db")

	_, err := runCommand(t, "--db", db, "--format", "json", "init", "--name", "Clínica A")
	require.NoError(t, err)

	clinicID := clinicIDFromDB(t, db)

	out, err := runCommand(t, "--db", db,
		"patient", "add", "--clinic", clinicID, "--public-id", "P-001", "--name", "Maria Silva")
	require.NoError(t, err)
	assert.Contains(t, out, "P-001")

	// Default gate state: names never appear, the public id stands in.
	out, err = runCommand(t, "--db", db, "patient", "list", "--clinic", clinicID)
	require.NoError(t, err)
	assert.Contains(t, out, "P-001")
	assert.NotContains(t, out, "Maria Silva")
}

func TestSessionFlowThroughCLI(t *testing.T) {
	db := filepath.Join(t.TempDir(), "clinic.db")

	_, err := runCommand(t, "--db", db, "init", "--name", "Clínica A")
	require.NoError(t, err)
	clinicID := clinicIDFromDB(t, db)

	_, err = runCommand(t, "--db", db,
		"patient", "add", "--clinic", clinicID, "--public-id", "P-001")
	require.NoError(t, err)
	patientID := patientIDFromList(t, db, clinicID)

	out, err := runCommand(t, "--db", db, "--actor", "dra.ana",
		"session", "add", "--clinic", clinicID, "--patient", patientID,
		"--date", "2024-01-10", "--type", "anamnese", "--mode", "presencial")
	require.NoError(t, err)
	assert.Contains(t, out, "agendada")

	out, err = runCommand(t, "--db", db, "session", "list", "--clinic", clinicID)
	require.NoError(t, err)
	assert.Contains(t, out, "1 session(s)")
}

func TestSessionListRequiresExactlyOneScope(t *testing.T) {
	db := filepath.Join(t.TempDir(), "clinic.db")
	_, err := runCommand(t, "--db", db, "init", "--name", "Clínica A")
	require.NoError(t, err)

	_, err = runCommand(t, "--db", db, "session", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runCommand(t, "--db", db, "session", "list", "--clinic", "c1", "--patient", "p1")
	require.Error(t, err)
}

func TestPrivacyStatusDefaults(t *testing.T) {
	db := filepath.Join(t.TempDir(), "clinic.db")
	_, err := runCommand(t, "--db", db, "init", "--name", "Clínica A")
	require.NoError(t, err)

	out, err := runCommand(t, "--db", db, "privacy", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Mode:         id")
	assert.Contains(t, out, "Disclose:     false")
}

func TestPrivacyModePersistsAcrossInvocations(t *testing.T) {
	db := filepath.Join(t.TempDir(), "clinic.db")
	_, err := runCommand(t, "--db", db, "init", "--name", "Clínica A")
	require.NoError(t, err)

	_, err = runCommand(t, "--db", db, "privacy", "mode", "nome")
	require.NoError(t, err)

	out, err := runCommand(t, "--db", db, "privacy", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Mode:         nome")
	// Mode alone never discloses: token absent, device online.
	assert.Contains(t, out, "Disclose:     false")
}

func TestPrivacyModeRejectsUnknownValue(t *testing.T) {
	db := filepath.Join(t.TempDir(), "clinic.db")
	_, err := runCommand(t, "--db", db, "init", "--name", "Clínica A")
	require.NoError(t, err)

	_, err = runCommand(t, "--db", db, "privacy", "mode", "nomes-completos")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

// clinicIDFromDB reads the single clinic id through the JSON interface.
func clinicIDFromDB(t *testing.T, db string) string {
	t.Helper()
	out, err := runCommand(t, "--db", db, "--format", "json", "clinic", "list")
	require.NoError(t, err)

	var resp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Data)
	return resp.Data[0].ID
}

// patientIDFromList reads the first patient id through the JSON interface.
func patientIDFromList(t *testing.T, db, clinicID string) string {
	t.Helper()
	out, err := runCommand(t, "--db", db, "--format", "json",
		"patient", "list", "--clinic", clinicID)
	require.NoError(t, err)

	var resp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Data)
	return resp.Data[0].ID
}
