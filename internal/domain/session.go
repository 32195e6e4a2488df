package domain

import "github.com/google/uuid"

// LiveState is the snapshot participants poll (or receive) during a live session
type LiveState struct {
	Code                 string   `json:"code"`
	IsActive             bool     `json:"isActive"`
	ManuallyDeactivated  *bool    `json:"manuallyDeactivated,omitempty"`
	ViewMode             ViewMode `json:"viewMode"`
	AdminJoined          bool     `json:"adminJoined"`
	AdminSessionID       *string  `json:"adminSessionId"`
	AdminSessionEpoch    int64    `json:"adminSessionEpoch"`
	CurrentQuestionIndex int      `json:"currentQuestionIndex"`
	QuestionCount        int      `json:"questionCount"`
	Authoritative        bool     `json:"authoritative"`
}

// Live reports whether an admin session is driving the poll
func (p *Poll) Live() bool {
	return p.AdminJoined
}

// LiveState snapshots the session coordinator fields. CurrentQuestionIndex
// is only authoritative while an admin drives a step-mode poll.
func (p *Poll) LiveState() LiveState {
	return LiveState{
		Code:                 p.Code,
		IsActive:             p.IsActive,
		ManuallyDeactivated:  p.ManuallyDeactivated(),
		ViewMode:             p.ViewMode,
		AdminJoined:          p.AdminJoined,
		AdminSessionID:       p.AdminSessionID,
		AdminSessionEpoch:    p.AdminSessionEpoch,
		CurrentQuestionIndex: p.CurrentQuestionIndex,
		QuestionCount:        p.QuestionCount(),
		Authoritative:        p.AdminJoined && p.ViewMode == ViewStep,
	}
}

// AdminJoin starts a live session, replacing any previous one
func (p *Poll) AdminJoin() string {
	token := "admin_" + uuid.NewString()
	p.AdminJoined = true
	p.AdminSessionID = &token
	p.AdminSessionEpoch++
	p.CurrentQuestionIndex = 0
	return token
}

// AdminLeave ends the live session; the current index is kept
func (p *Poll) AdminLeave() {
	p.AdminJoined = false
	p.AdminSessionID = nil
}

// CheckSession rejects a caller holding a token from an earlier session.
// An empty token skips the check.
func (p *Poll) CheckSession(token string) error {
	if token == "" || !p.AdminJoined {
		return nil
	}
	if p.AdminSessionID == nil || *p.AdminSessionID != token {
		return ErrSessionSuperseded
	}
	return nil
}

// NextQuestion advances the live index by one
func (p *Poll) NextQuestion() error {
	if !p.Live() {
		return ErrNotLive
	}
	if p.CurrentQuestionIndex >= p.QuestionCount()-1 {
		return &BoundaryError{Last: true}
	}
	p.CurrentQuestionIndex++
	return nil
}

// PreviousQuestion moves the live index back by one
func (p *Poll) PreviousQuestion() error {
	if !p.Live() {
		return ErrNotLive
	}
	if p.CurrentQuestionIndex <= 0 {
		return &BoundaryError{Last: false}
	}
	p.CurrentQuestionIndex--
	return nil
}

// JumpToQuestion sets the live index directly
func (p *Poll) JumpToQuestion(index int) error {
	if !p.Live() {
		return ErrNotLive
	}
	if index < 0 || index >= p.QuestionCount() {
		return ErrInvalidIndex
	}
	p.CurrentQuestionIndex = index
	return nil
}

// ToggleViewMode flips between single and step
func (p *Poll) ToggleViewMode() ViewMode {
	if p.ViewMode == ViewStep {
		p.ViewMode = ViewSingle
	} else {
		p.ViewMode = ViewStep
	}
	return p.ViewMode
}
