package domain

import "time"

// PollView is the wire shape of a poll. Responses and Analytics are nil in
// the public view.
type PollView struct {
	ID                   string           `json:"id"`
	Code                 string           `json:"code"`
	CreatorID            string           `json:"creatorId"`
	Title                string           `json:"title"`
	Description          string           `json:"description"`
	Questions            []Question       `json:"questions"`
	Settings             PollSettings     `json:"settings"`
	IsActive             bool             `json:"isActive"`
	ManuallyDeactivated  *bool            `json:"manuallyDeactivated,omitempty"`
	IsExpiredByTime      bool             `json:"isExpiredByTime"`
	Status               ActivationStatus `json:"status"`
	ViewMode             ViewMode         `json:"viewMode"`
	CurrentQuestionIndex int              `json:"currentQuestionIndex"`
	AdminJoined          bool             `json:"adminJoined"`
	AdminSessionID       *string          `json:"adminSessionId"`
	AdminSessionEpoch    int64            `json:"adminSessionEpoch"`
	Participants         []Participant    `json:"participants"`
	Responses            []Response       `json:"responses,omitempty"`
	Analytics            *Analytics       `json:"analytics,omitempty"`
	Version              int64            `json:"version"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
}

// NewPollView renders p; private includes responses and analytics
func NewPollView(p *Poll, private bool, now time.Time) PollView {
	v := PollView{
		ID:                   p.ID,
		Code:                 p.Code,
		CreatorID:            p.CreatorID,
		Title:                p.Title,
		Description:          p.Description,
		Questions:            p.Questions,
		Settings:             p.Settings,
		IsActive:             p.IsActive,
		ManuallyDeactivated:  p.ManuallyDeactivated(),
		IsExpiredByTime:      p.ExpiredByTime(now),
		Status:               p.Status(now),
		ViewMode:             p.ViewMode,
		CurrentQuestionIndex: p.CurrentQuestionIndex,
		AdminJoined:          p.AdminJoined,
		AdminSessionID:       p.AdminSessionID,
		AdminSessionEpoch:    p.AdminSessionEpoch,
		Participants:         p.Participants,
		Version:              p.Version,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
	if v.Participants == nil {
		v.Participants = []Participant{}
	}
	if private {
		v.Responses = p.Responses
		if v.Responses == nil {
			v.Responses = []Response{}
		}
		analytics := p.Analytics
		v.Analytics = &analytics
	}
	return v
}

// ActivationState is returned by operations that change activation
type ActivationState struct {
	Code                string       `json:"code"`
	IsActive            bool         `json:"isActive"`
	ManuallyDeactivated *bool        `json:"manuallyDeactivated,omitempty"`
	IsExpiredByTime     bool         `json:"isExpiredByTime"`
	Settings            PollSettings `json:"settings"`
}

// ActivationState snapshots activation fields
func (p *Poll) ActivationState(now time.Time) ActivationState {
	return ActivationState{
		Code:                p.Code,
		IsActive:            p.IsActive,
		ManuallyDeactivated: p.ManuallyDeactivated(),
		IsExpiredByTime:     p.ExpiredByTime(now),
		Settings:            p.Settings,
	}
}
