package session

import (
	"time"

	"workshop-backend/internal/models"
)

const (
	// EarlyJoin is how long before the start participants may join.
	EarlyJoin = 5 * time.Minute
	// LateJoinGrace is how long after the nominal end joining is still allowed.
	LateJoinGrace = 10 * time.Minute
)

// WindowOutcome is the result of checking an instant against a workshop's
// admission window.
type WindowOutcome int

const (
	WindowOpen WindowOutcome = iota
	WindowNotYetOpen
	WindowEnded
)

// Window is the closed interval during which joins are admitted.
type Window struct {
	Opens  time.Time
	Closes time.Time
}

// AdmissionWindow returns [start - EarlyJoin, start + duration + LateJoinGrace].
func AdmissionWindow(w *models.Workshop) Window {
	return Window{
		Opens:  w.StartTime.Add(-EarlyJoin),
		Closes: w.EndTime().Add(LateJoinGrace),
	}
}

// Check reports which bound, if any, now violates.
func (win Window) Check(now time.Time) WindowOutcome {
	if now.Before(win.Opens) {
		return WindowNotYetOpen
	}
	if now.After(win.Closes) {
		return WindowEnded
	}
	return WindowOpen
}

// Admits reports whether now falls inside the workshop's admission window.
func Admits(now time.Time, w *models.Workshop) bool {
	return AdmissionWindow(w).Check(now) == WindowOpen
}

func windowError(outcome WindowOutcome) error {
	switch outcome {
	case WindowNotYetOpen:
		return errForbidden(ReasonNotYetOpen, "Workshop has not started yet")
	case WindowEnded:
		return errForbidden(ReasonEnded, "Workshop has ended")
	}
	return nil
}
