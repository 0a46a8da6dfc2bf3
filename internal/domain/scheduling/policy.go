package scheduling

import "time"

// PolicyWindow is the minimum lead time for cancelling or rescheduling.
const PolicyWindow = 24 * time.Hour

// CanModify gates cancel/reschedule on ownership. Patients are restricted to
// their own appointments, doctors and admins may modify any, and every other
// role (including an unrecognised one) is refused.
func CanModify(a *Appointment, actingUserID string, role Role, action string) error {
	switch role {
	case RoleDoctor, RoleAdmin:
		return nil
	case RolePatient:
		if a.PatientUserID == actingUserID {
			return nil
		}
	}
	return newError(KindForbidden, "Not authorized to %s this appointment", action)
}

// CheckTimingWindow denies modification when the appointment starts less
// than PolicyWindow from now.
func CheckTimingWindow(at, now time.Time, action string) error {
	if at.Sub(now) < PolicyWindow {
		return newError(KindPolicyViolation,
			"Cannot %s appointment less than 24 hours before scheduled time", action)
	}
	return nil
}
