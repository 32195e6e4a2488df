package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// QuestionType enumerates the supported question variants
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionRating         QuestionType = "rating"
	QuestionOpenEnded      QuestionType = "open-ended"
	QuestionWordCloud      QuestionType = "word-cloud"
	QuestionRanking        QuestionType = "ranking"
)

// Question setting defaults
const (
	DefaultMinRating = 1
	DefaultMaxRating = 5
	DefaultMaxWords  = 3

	MaxQuestionLength = 500
)

// Option is one selectable choice of a multiple-choice or ranking question
type Option struct {
	Text  string `json:"text" validate:"required"`
	Value string `json:"value" validate:"required"`
}

// QuestionSettings is the per-type settings bag. All fields always carry
// values; only the ones relevant to the question type are used.
type QuestionSettings struct {
	AllowMultiple bool `json:"allowMultiple"`
	MinRating     int  `json:"minRating"`
	MaxRating     int  `json:"maxRating"`
	MaxWords      int  `json:"maxWords"`
}

// Question is a normalized poll question
type Question struct {
	ID       string           `json:"id"`
	Type     QuestionType     `json:"type"`
	Question string           `json:"question"`
	Options  []Option         `json:"options,omitempty"`
	Required bool             `json:"required"`
	Settings QuestionSettings `json:"settings"`
}

// QuestionSettingsInput carries optional settings from a request
type QuestionSettingsInput struct {
	AllowMultiple *bool `json:"allowMultiple"`
	MinRating     int   `json:"minRating" validate:"omitempty,min=1,max=10"`
	MaxRating     int   `json:"maxRating" validate:"omitempty,min=1,max=10"`
	MaxWords      int   `json:"maxWords" validate:"omitempty,min=1,max=10"`
}

// QuestionInput is a question as submitted by a creator
type QuestionInput struct {
	ID       string                `json:"id"`
	Type     QuestionType          `json:"type" validate:"required,oneof=multiple-choice rating open-ended word-cloud ranking"`
	Question string                `json:"question" validate:"required,max=500"`
	Options  []Option              `json:"options"`
	Required *bool                 `json:"required"`
	Settings QuestionSettingsInput `json:"settings"`
}

var validate = validator.New()

// NormalizeQuestion validates one question and applies type defaults.
// An incoming id is kept so edits do not orphan stored answers.
func NormalizeQuestion(index int, in QuestionInput) (Question, error) {
	field := fmt.Sprintf("questions[%d]", index)
	in.Question = strings.TrimSpace(in.Question)

	if err := validate.Struct(in); err != nil {
		return Question{}, fieldError(field, err)
	}

	q := Question{
		ID:       in.ID,
		Type:     in.Type,
		Question: in.Question,
		Required: true,
		Settings: QuestionSettings{
			MinRating: DefaultMinRating,
			MaxRating: DefaultMaxRating,
			MaxWords:  DefaultMaxWords,
		},
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if in.Required != nil {
		q.Required = *in.Required
	}
	if in.Settings.AllowMultiple != nil {
		q.Settings.AllowMultiple = *in.Settings.AllowMultiple
	}
	if in.Settings.MinRating > 0 {
		q.Settings.MinRating = in.Settings.MinRating
	}
	if in.Settings.MaxRating > 0 {
		q.Settings.MaxRating = in.Settings.MaxRating
	}
	if in.Settings.MaxWords > 0 {
		q.Settings.MaxWords = in.Settings.MaxWords
	}
	if q.Settings.MaxRating < q.Settings.MinRating {
		q.Settings.MaxRating = q.Settings.MinRating
	}

	switch q.Type {
	case QuestionMultipleChoice, QuestionRanking:
		if len(in.Options) < 2 {
			return Question{}, invalid(field+".options", "at least 2 options are required for %s questions", q.Type)
		}
		q.Options = make([]Option, 0, len(in.Options))
		for i, opt := range in.Options {
			opt.Text = strings.TrimSpace(opt.Text)
			opt.Value = strings.TrimSpace(opt.Value)
			if err := validate.Struct(opt); err != nil {
				return Question{}, fieldError(fmt.Sprintf("%s.options[%d]", field, i), err)
			}
			q.Options = append(q.Options, opt)
		}
	}
	return q, nil
}

// NormalizeQuestions normalizes a full question list; at least one is required
func NormalizeQuestions(in []QuestionInput) ([]Question, error) {
	if len(in) == 0 {
		return nil, invalid("questions", "at least one question is required")
	}
	out := make([]Question, 0, len(in))
	seen := make(map[string]bool, len(in))
	for i, qi := range in {
		q, err := NormalizeQuestion(i, qi)
		if err != nil {
			return nil, err
		}
		if seen[q.ID] {
			q.ID = uuid.NewString()
		}
		seen[q.ID] = true
		out = append(out, q)
	}
	return out, nil
}

func fieldError(field string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalid(field, "%v", err)
	}
	fe := verrs[0]
	name := field + "." + lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return invalid(name, "is required")
	case "max":
		return invalid(name, "must be at most %s", fe.Param())
	case "min":
		return invalid(name, "must be at least %s", fe.Param())
	case "oneof":
		return invalid(name, "must be one of [%s]", fe.Param())
	case "email":
		return invalid(name, "must be a valid email")
	default:
		return invalid(name, "failed %s validation", fe.Tag())
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
