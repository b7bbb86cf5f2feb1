package entity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	role, err := ParseRole("judge")
	require.NoError(t, err)
	assert.Equal(t, RoleJudge, role)

	_, err = ParseRole("clerk")
	assert.Error(t, err)
}

func TestRole_RoleIDLabel(t *testing.T) {
	assert.Equal(t, "enrollment_number", RoleLawyer.RoleIDLabel())
	assert.Equal(t, "court_id", RoleJudge.RoleIDLabel())
	assert.Panics(t, func() { _ = Role("admin").RoleIDLabel() })
}

func TestProfileMetadata_ToProfile(t *testing.T) {
	id := uuid.New()

	lawyer := ProfileMetadata{Role: RoleLawyer, FullName: "A. Advocate", EnrollmentNumber: "EN1", CourtID: "ignored"}.ToProfile(id)
	assert.Equal(t, id, lawyer.IdentityID)
	assert.Equal(t, "EN1", lawyer.RoleSpecificID())
	assert.Empty(t, lawyer.CourtID)

	judge := ProfileMetadata{Role: RoleJudge, FullName: "J. Bench", CourtID: "HC-MUM"}.ToProfile(id)
	assert.Equal(t, "HC-MUM", judge.RoleSpecificID())
	assert.Empty(t, judge.EnrollmentNumber)
}

func TestParticipantRole_SeesPrivate(t *testing.T) {
	assert.True(t, ParticipantPetitionerCounsel.SeesPrivate())
	assert.True(t, ParticipantRespondentCounsel.SeesPrivate())
	assert.True(t, ParticipantJudge.SeesPrivate())
	assert.False(t, ParticipantClerk.SeesPrivate())
	assert.False(t, ParticipantObserver.SeesPrivate())
}

func TestCase_CanManage(t *testing.T) {
	owner, judge, other := uuid.New(), uuid.New(), uuid.New()
	c := &Case{CreatedBy: owner, JudgeID: &judge}

	assert.True(t, c.CanManage(owner))
	assert.True(t, c.CanManage(judge))
	assert.False(t, c.CanManage(other))
	assert.False(t, (&Case{CreatedBy: owner}).IsAssignedJudge(judge))
}
