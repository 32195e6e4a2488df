package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ManualOverride records the creator's last explicit activation intent.
// Polls that were never toggled keep OverrideNeverSet so time-based expiry
// can still deactivate them.
type ManualOverride string

const (
	OverrideNeverSet    ManualOverride = "never_set"
	OverrideActivated   ManualOverride = "activated"
	OverrideDeactivated ManualOverride = "deactivated"
)

// ViewMode controls whether participants see all questions or one at a time
type ViewMode string

const (
	ViewSingle ViewMode = "single"
	ViewStep   ViewMode = "step"
)

// PollSettings poll-level behaviour flags
type PollSettings struct {
	AllowAnonymous           bool       `json:"allowAnonymous"`
	ShowResults              bool       `json:"showResults"`
	AllowMultipleSubmissions bool       `json:"allowMultipleSubmissions"`
	EndDate                  *time.Time `json:"endDate,omitempty"`

	// LegacyIsActive is only read by the 1.1.0 upgrade step.
	LegacyIsActive *bool `json:"isActive,omitempty"`
}

// DefaultPollSettings returns the settings of a freshly created poll
func DefaultPollSettings() PollSettings {
	return PollSettings{AllowAnonymous: true, ShowResults: true}
}

// Participant someone who joined a poll
type Participant struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email,omitempty"`
	JoinedAt time.Time `json:"joinedAt"`
}

// IdentityKey is the participant dedup key: email when present, else name
func (p Participant) IdentityKey() string {
	return identityKey(p.Name, p.Email)
}

func identityKey(name, email string) string {
	if e := strings.TrimSpace(email); e != "" {
		return "email:" + strings.ToLower(e)
	}
	return "name:" + strings.TrimSpace(name)
}

// Answer one stored answer. Value is kept as raw JSON since answers may be
// strings, numbers, arrays or objects depending on the question type.
type Answer struct {
	QuestionID  string         `json:"questionId"`
	Answer      datatypes.JSON `json:"answer"`
	SubmittedAt time.Time      `json:"submittedAt"`
}

// Response one submission by a participant
type Response struct {
	ParticipantID   string   `json:"participantId"`
	ParticipantName string   `json:"participantName"`
	Answers         []Answer `json:"answers"`
}

// SubmittedAt returns the timestamp of the first answer
func (r Response) SubmittedAt() time.Time {
	if len(r.Answers) == 0 {
		return time.Time{}
	}
	return r.Answers[0].SubmittedAt
}

// Analytics derived counters cached on the poll document
type Analytics struct {
	TotalParticipants   int     `json:"totalParticipants"`
	TotalResponses      int     `json:"totalResponses"`
	AverageResponseTime float64 `json:"averageResponseTime"`
}

// Poll is the aggregate root. The whole document lives in one row; nested
// collections are JSON columns and Version guards read-modify-write cycles.
type Poll struct {
	ID                   string                           `gorm:"column:id;primaryKey;size:36" json:"id"`
	Code                 string                           `gorm:"column:code;uniqueIndex;size:6;not null" json:"code"`
	CreatorID            string                           `gorm:"column:creator_id;index;size:64;not null" json:"creatorId"`
	Title                string                           `gorm:"column:title;size:200;not null" json:"title"`
	Description          string                           `gorm:"column:description;size:500" json:"description"`
	Questions            datatypes.JSONSlice[Question]    `gorm:"column:questions" json:"questions"`
	Settings             PollSettings                     `gorm:"column:settings;type:text;serializer:json" json:"settings"`
	IsActive             bool                             `gorm:"column:is_active" json:"isActive"`
	ManualOverride       ManualOverride                   `gorm:"column:manual_override;size:16" json:"-"`
	ViewMode             ViewMode                         `gorm:"column:view_mode;size:8" json:"viewMode"`
	CurrentQuestionIndex int                              `gorm:"column:current_question_index" json:"currentQuestionIndex"`
	AdminJoined          bool                             `gorm:"column:admin_joined" json:"adminJoined"`
	AdminSessionID       *string                          `gorm:"column:admin_session_id;size:64" json:"adminSessionId"`
	AdminSessionEpoch    int64                            `gorm:"column:admin_session_epoch" json:"adminSessionEpoch"`
	Participants         datatypes.JSONSlice[Participant] `gorm:"column:participants" json:"participants"`
	Responses            datatypes.JSONSlice[Response]    `gorm:"column:responses" json:"responses"`
	Analytics            Analytics                        `gorm:"column:analytics;type:text;serializer:json" json:"analytics"`
	SchemaVersion        string                           `gorm:"column:schema_version;size:16" json:"-"`
	Version              int64                            `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt            time.Time                        `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt            time.Time                        `gorm:"column:updated_at" json:"updatedAt"`
}

// TableName returns the table name for GORM
func (Poll) TableName() string {
	return "polls"
}

// IsCreator reports whether userID owns the poll
func (p *Poll) IsCreator(userID string) bool {
	return userID != "" && p.CreatorID == userID
}

// QuestionCount number of questions
func (p *Poll) QuestionCount() int {
	return len(p.Questions)
}

// Question finds a question by id
func (p *Poll) Question(id string) (Question, bool) {
	for _, q := range p.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// FindParticipant looks up a participant by identity key
func (p *Poll) FindParticipant(name, email string) (Participant, bool) {
	key := identityKey(name, email)
	for _, pt := range p.Participants {
		if pt.IdentityKey() == key {
			return pt, true
		}
	}
	return Participant{}, false
}

// ParticipantByID looks up a participant by id
func (p *Poll) ParticipantByID(id string) (Participant, bool) {
	for _, pt := range p.Participants {
		if pt.ID == id {
			return pt, true
		}
	}
	return Participant{}, false
}

// HasResponded reports whether participantID already submitted
func (p *Poll) HasResponded(participantID string) bool {
	for _, r := range p.Responses {
		if r.ParticipantID == participantID {
			return true
		}
	}
	return false
}

// ManuallyDeactivated renders the override as the wire tri-state:
// nil when never set, false when activated, true when deactivated.
func (p *Poll) ManuallyDeactivated() *bool {
	var v bool
	switch p.ManualOverride {
	case OverrideActivated:
		v = false
	case OverrideDeactivated:
		v = true
	default:
		return nil
	}
	return &v
}

// NullableTime distinguishes an absent JSON field from an explicit null.
// Set is true whenever the key was present in the payload.
type NullableTime struct {
	Set  bool
	Time *time.Time
}

// UnmarshalJSON accepts null, "" or an RFC 3339 timestamp
func (n *NullableTime) UnmarshalJSON(data []byte) error {
	n.Set = true
	n.Time = nil
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) {
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(trimmed, &t); err != nil {
		return invalid("settings.endDate", "must be an RFC 3339 timestamp")
	}
	n.Time = &t
	return nil
}

// SettingsInput optional poll settings from a request; nil fields are kept
type SettingsInput struct {
	AllowAnonymous           *bool        `json:"allowAnonymous"`
	ShowResults              *bool        `json:"showResults"`
	AllowMultipleSubmissions *bool        `json:"allowMultipleSubmissions"`
	EndDate                  NullableTime `json:"endDate"`
}

// MergeInto shallow-merges the provided fields over base
func (in SettingsInput) MergeInto(base PollSettings) PollSettings {
	if in.AllowAnonymous != nil {
		base.AllowAnonymous = *in.AllowAnonymous
	}
	if in.ShowResults != nil {
		base.ShowResults = *in.ShowResults
	}
	if in.AllowMultipleSubmissions != nil {
		base.AllowMultipleSubmissions = *in.AllowMultipleSubmissions
	}
	if in.EndDate.Set {
		base.EndDate = in.EndDate.Time
	}
	return base
}

// PollInput create/update payload
type PollInput struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=500"`
	Questions   []QuestionInput `json:"questions"`
	Settings    SettingsInput   `json:"settings"`
}

// Normalize validates title/description and every question
func (in *PollInput) Normalize() ([]Question, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validate.Struct(in); err != nil {
		return nil, fieldError("poll", err)
	}
	return NormalizeQuestions(in.Questions)
}

// JoinInput participant join payload
type JoinInput struct {
	ParticipantName  string `json:"participantName" validate:"required,max=100"`
	ParticipantEmail string `json:"participantEmail" validate:"omitempty,email"`
}

// Validate trims and validates the join payload
func (in *JoinInput) Validate() error {
	in.ParticipantName = strings.TrimSpace(in.ParticipantName)
	in.ParticipantEmail = strings.TrimSpace(in.ParticipantEmail)
	if err := validate.Struct(in); err != nil {
		return fieldError("join", err)
	}
	return nil
}

// AnswerInput one submitted answer
type AnswerInput struct {
	QuestionID string          `json:"questionId" validate:"required"`
	Answer     json.RawMessage `json:"answer"`
}

// RespondInput response submission payload
type RespondInput struct {
	JoinInput
	Answers []AnswerInput `json:"answers"`
}

// Validate checks identity fields and that every answer targets a question of p
func (in *RespondInput) Validate(p *Poll) error {
	if err := in.JoinInput.Validate(); err != nil {
		return err
	}
	if len(in.Answers) == 0 {
		return invalid("answers", "at least one answer is required")
	}
	for i, a := range in.Answers {
		if err := validate.Struct(a); err != nil {
			return fieldError("answers", err)
		}
		raw := bytes.TrimSpace(a.Answer)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			return invalid("answers", "answer %d is empty", i)
		}
		if !json.Valid(raw) {
			return invalid("answers", "answer %d is not valid JSON", i)
		}
		if _, ok := p.Question(a.QuestionID); !ok {
			return invalid("answers", "answer %d references unknown question %q", i, a.QuestionID)
		}
	}
	return nil
}
