package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campushub/codeathon-api/internal/models"
)

func TestCreditValue(t *testing.T) {
	assert.Equal(t, 3, CreditValue(models.AttendanceAttended, models.AchievementWinner))
	assert.Equal(t, 2, CreditValue(models.AttendanceAttended, models.AchievementRunnerUp))
	assert.Equal(t, 1, CreditValue(models.AttendanceAttended, models.AchievementParticipation))
	assert.Equal(t, 1, CreditValue(models.AttendanceAttended, models.AchievementNone))
}

func TestCreditValueRequiresAttendance(t *testing.T) {
	assert.Equal(t, 0, CreditValue(models.AttendanceRegistered, models.AchievementWinner))
	assert.Equal(t, 0, CreditValue(models.AttendanceDidNotAttend, models.AchievementWinner))
	assert.Equal(t, 0, CreditValue(models.AttendanceRegistered, models.AchievementParticipation))
}

func TestLedgerDeltaEdges(t *testing.T) {
	assert.Equal(t, 3, LedgerDelta(models.ParticipationPending, models.ParticipationAccepted, 3))
	assert.Equal(t, 2, LedgerDelta(models.ParticipationDeclined, models.ParticipationAccepted, 2))
	assert.Equal(t, -3, LedgerDelta(models.ParticipationAccepted, models.ParticipationDeclined, 3))
	assert.Equal(t, -1, LedgerDelta(models.ParticipationAccepted, models.ParticipationPending, 1))
}

func TestLedgerDeltaNoEdge(t *testing.T) {
	// re-applying the same decision must not double-credit
	assert.Equal(t, 0, LedgerDelta(models.ParticipationAccepted, models.ParticipationAccepted, 3))
	assert.Equal(t, 0, LedgerDelta(models.ParticipationPending, models.ParticipationDeclined, 3))
	assert.Equal(t, 0, LedgerDelta(models.ParticipationDeclined, models.ParticipationDeclined, 2))
	assert.Equal(t, 0, LedgerDelta(models.ParticipationDeclined, models.ParticipationPending, 2))
}

func TestLedgerDeltaSymmetry(t *testing.T) {
	// a full accept/revoke cycle nets to zero for any value
	for value := 0; value <= 3; value++ {
		apply := LedgerDelta(models.ParticipationPending, models.ParticipationAccepted, value)
		revoke := LedgerDelta(models.ParticipationAccepted, models.ParticipationDeclined, value)
		assert.Equal(t, 0, apply+revoke)
	}
}
