package domain

import "time"

// ActivationStatus is the state surfaced to clients
type ActivationStatus string

const (
	StatusActive        ActivationStatus = "active"
	StatusInactive      ActivationStatus = "inactive"
	StatusActiveExpired ActivationStatus = "active-expired"
)

// ExpiredByTime reports whether the end date has passed
func (s PollSettings) ExpiredByTime(now time.Time) bool {
	return s.EndDate != nil && s.EndDate.Before(now)
}

// ExpiredByTime reports whether the poll end date has passed
func (p *Poll) ExpiredByTime(now time.Time) bool {
	return p.Settings.ExpiredByTime(now)
}

// Reconcile applies time-based expiry to polls the creator never toggled.
// An explicit activation is honoured past the end date. Returns true when
// the poll changed. Safe to call repeatedly.
func (p *Poll) Reconcile(now time.Time) bool {
	if !p.IsActive || !p.ExpiredByTime(now) {
		return false
	}
	if p.overrideOrDefault() != OverrideNeverSet {
		return false
	}
	p.IsActive = false
	p.ManualOverride = OverrideActivated
	return true
}

// AcceptingResponses reports whether joins and responses are allowed.
// Callers are expected to Reconcile first.
func (p *Poll) AcceptingResponses() bool {
	return p.IsActive
}

// Status classifies the poll for display
func (p *Poll) Status(now time.Time) ActivationStatus {
	switch {
	case !p.IsActive:
		return StatusInactive
	case p.ExpiredByTime(now):
		return StatusActiveExpired
	default:
		return StatusActive
	}
}

// ToggleActive flips activation on explicit creator intent. Activating a
// poll whose end date has passed fails with ErrExpired.
func (p *Poll) ToggleActive(now time.Time) error {
	if p.IsActive {
		p.IsActive = false
		p.ManualOverride = OverrideDeactivated
		return nil
	}
	if p.ExpiredByTime(now) {
		return ErrExpired
	}
	p.IsActive = true
	p.ManualOverride = OverrideActivated
	return nil
}

// RecomputeActive derives isActive after a content edit. A past end date
// deactivates; otherwise the poll is active unless the creator turned it off.
func (p *Poll) RecomputeActive(now time.Time) {
	if p.ExpiredByTime(now) {
		p.IsActive = false
		return
	}
	p.IsActive = p.overrideOrDefault() != OverrideDeactivated
}

func (p *Poll) overrideOrDefault() ManualOverride {
	if p.ManualOverride == "" {
		return OverrideNeverSet
	}
	return p.ManualOverride
}
