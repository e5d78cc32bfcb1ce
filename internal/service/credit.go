package service

import "github.com/campushub/codeathon-api/internal/models"

// CreditValue maps an attendance/achievement outcome to its point value.
// Credit requires attendance; a registered no-show earns nothing.
func CreditValue(attendance models.AttendanceStatus, achievement models.AchievementLevel) int {
	if attendance != models.AttendanceAttended {
		return 0
	}
	switch achievement {
	case models.AchievementWinner:
		return 3
	case models.AchievementRunnerUp:
		return 2
	default:
		return 1
	}
}

// LedgerDelta computes the signed credit change for a decision transition.
// Credit moves only on the edge into or out of Accepted, never from the static
// status value, which is what keeps re-application idempotent.
func LedgerDelta(prev, next models.ParticipationStatus, value int) int {
	switch {
	case prev != models.ParticipationAccepted && next == models.ParticipationAccepted:
		return value
	case prev == models.ParticipationAccepted && next != models.ParticipationAccepted:
		return -value
	default:
		return 0
	}
}
