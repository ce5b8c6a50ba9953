package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psiclin/psiclin/internal/model"
)

func sessionFixture() model.Session {
	return model.Session{
		ID:          "s1",
		ClinicID:    "c1",
		PatientID:   "p1",
		SessionDate: "2024-01-10",
		SessionType: model.TypeAnamnese,
		Mode:        model.ModePresencial,
		Status:      model.StatusAgendada,
	}
}

func TestDiffSessionOnlyChangedFields(t *testing.T) {
	current := sessionFixture()

	status := model.StatusConcluida
	sameDate := "2024-01-10" // equal to stored value
	complaint := "dor de cabeça"
	u := model.SessionUpdate{
		Status:        &status,
		SessionDate:   &sameDate,
		MainComplaint: &complaint,
	}

	changes := diffSession(current, u)
	require.Len(t, changes, 2)

	byField := map[string]fieldChange{}
	for _, c := range changes {
		byField[c.Field] = c
	}

	sc, ok := byField[FieldStatus]
	require.True(t, ok)
	assert.Equal(t, "agendada", *sc.Old)
	assert.Equal(t, "concluida", *sc.New)

	mc, ok := byField[FieldMainComplaint]
	require.True(t, ok)
	assert.Nil(t, mc.Old, "previously unset field records nil old value")
	assert.Equal(t, "dor de cabeça", *mc.New)

	_, ok = byField[FieldSessionDate]
	assert.False(t, ok, "unchanged field must not appear")
}

func TestDiffSessionEmptyUpdate(t *testing.T) {
	assert.Empty(t, diffSession(sessionFixture(), model.SessionUpdate{}))
}

func TestDiffSessionDuration(t *testing.T) {
	current := sessionFixture()
	dur := 50
	changes := diffSession(current, model.SessionUpdate{ScheduledDuration: &dur})
	require.Len(t, changes, 1)
	assert.Equal(t, FieldScheduledDuration, changes[0].Field)
	assert.Nil(t, changes[0].Old)
	assert.Equal(t, "50", *changes[0].New)

	// Setting the same duration again is not a change.
	current.ScheduledDuration = &dur
	assert.Empty(t, diffSession(current, model.SessionUpdate{ScheduledDuration: &dur}))
}

func TestHistoryRowFillsAttribution(t *testing.T) {
	sess := sessionFixture()

	h := historyRow(sess, "dra.ana", model.ChangeUpdated, &fieldChange{
		Field: FieldStatus,
		Old:   strVal("agendada"),
		New:   strVal("concluida"),
	}, 7)

	assert.NotEmpty(t, h.ID)
	assert.Equal(t, "s1", h.SessionID)
	assert.Equal(t, "c1", h.ClinicID)
	assert.Equal(t, "dra.ana", h.ChangedBy)
	assert.Equal(t, model.ChangeUpdated, h.ChangeType)
	assert.Equal(t, int64(7), h.Seq)
	assert.False(t, h.ChangedAt.IsZero())
	require.NotNil(t, h.FieldName)
	assert.Equal(t, FieldStatus, *h.FieldName)
}

func TestHistoryRowCreatedHasNoFieldTriple(t *testing.T) {
	h := historyRow(sessionFixture(), "", model.ChangeCreated, nil, 1)
	assert.Nil(t, h.FieldName)
	assert.Nil(t, h.OldValue)
	assert.Nil(t, h.NewValue)
	assert.Equal(t, model.SystemActor, h.ChangedBy)
}

func TestResolveActor(t *testing.T) {
	assert.Equal(t, model.SystemActor, resolveActor(""))
	assert.Equal(t, "dra.ana", resolveActor("dra.ana"))
}
