package domain

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// NewPoll builds a poll from normalized questions. The poll starts active
// unless its end date is already in the past.
func NewPoll(id, code, creatorID string, in PollInput, questions []Question, now time.Time) *Poll {
	p := &Poll{
		ID:             id,
		Code:           code,
		CreatorID:      creatorID,
		Title:          in.Title,
		Description:    in.Description,
		Questions:      questions,
		Settings:       in.Settings.MergeInto(DefaultPollSettings()),
		ManualOverride: OverrideNeverSet,
		ViewMode:       ViewSingle,
		Participants:   datatypes.JSONSlice[Participant]{},
		Responses:      datatypes.JSONSlice[Response]{},
		SchemaVersion:  CurrentSchemaVersion.String(),
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	p.IsActive = !p.ExpiredByTime(now)
	return p
}

// CloneAs copies questions into a new inactive poll owned by creatorID.
// Participants, responses and the end date are not carried over.
func (p *Poll) CloneAs(id, code, creatorID string, now time.Time) *Poll {
	questions := make(datatypes.JSONSlice[Question], 0, len(p.Questions))
	for _, q := range p.Questions {
		q.ID = uuid.NewString()
		q.Options = append([]Option(nil), q.Options...)
		questions = append(questions, q)
	}
	settings := p.Settings
	settings.EndDate = nil
	settings.LegacyIsActive = nil
	return &Poll{
		ID:             id,
		Code:           code,
		CreatorID:      creatorID,
		Title:          p.Title + " (Copy)",
		Description:    p.Description,
		Questions:      questions,
		Settings:       settings,
		IsActive:       false,
		ManualOverride: OverrideNeverSet,
		ViewMode:       p.ViewMode,
		Participants:   datatypes.JSONSlice[Participant]{},
		Responses:      datatypes.JSONSlice[Response]{},
		SchemaVersion:  CurrentSchemaVersion.String(),
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Join registers a participant or returns the existing one with the same
// identity key. The second return value is true for a re-join.
func (p *Poll) Join(name, email string, now time.Time) (Participant, bool, error) {
	if !p.AcceptingResponses() {
		return Participant{}, false, ErrNotActive
	}
	if existing, ok := p.FindParticipant(name, email); ok {
		p.Analytics.TotalParticipants = len(p.Participants)
		return existing, true, nil
	}
	pt := Participant{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		JoinedAt: now,
	}
	p.Participants = append(p.Participants, pt)
	p.Analytics.TotalParticipants = len(p.Participants)
	return pt, false, nil
}

// Respond appends a response. When the end date has passed the poll is
// deactivated and ErrExpired returned; the caller must still persist it.
func (p *Poll) Respond(in RespondInput, now time.Time) (Response, error) {
	p.Reconcile(now)
	if !p.AcceptingResponses() {
		return Response{}, ErrNotActive
	}
	if p.ExpiredByTime(now) {
		p.IsActive = false
		return Response{}, ErrExpired
	}
	pt, ok := p.FindParticipant(in.ParticipantName, in.ParticipantEmail)
	if !ok {
		return Response{}, ErrParticipantNotFound
	}
	if !p.Settings.AllowMultipleSubmissions && p.HasResponded(pt.ID) {
		return Response{}, ErrDuplicateResponse
	}

	answers := make([]Answer, 0, len(in.Answers))
	for _, a := range in.Answers {
		answers = append(answers, Answer{
			QuestionID:  a.QuestionID,
			Answer:      datatypes.JSON(a.Answer),
			SubmittedAt: now,
		})
	}
	r := Response{
		ParticipantID:   pt.ID,
		ParticipantName: pt.Name,
		Answers:         answers,
	}
	p.Responses = append(p.Responses, r)
	p.Analytics.TotalResponses++
	return r, nil
}

// ComputeAnalytics derives the analytics block from the stored collections.
// AverageResponseTime is the mean number of seconds between a participant
// joining and submitting, rounded to two decimals.
func (p *Poll) ComputeAnalytics() Analytics {
	a := Analytics{
		TotalParticipants: len(p.Participants),
		TotalResponses:    len(p.Responses),
	}
	var total float64
	var n int
	for _, r := range p.Responses {
		pt, ok := p.ParticipantByID(r.ParticipantID)
		submitted := r.SubmittedAt()
		if !ok || submitted.IsZero() || submitted.Before(pt.JoinedAt) {
			continue
		}
		total += submitted.Sub(pt.JoinedAt).Seconds()
		n++
	}
	if n > 0 {
		a.AverageResponseTime = math.Round(total/float64(n)*100) / 100
	}
	return a
}

// HealAnalytics overwrites stale analytics. Returns true when it changed.
func (p *Poll) HealAnalytics() bool {
	computed := p.ComputeAnalytics()
	if computed == p.Analytics {
		return false
	}
	p.Analytics = computed
	return true
}
