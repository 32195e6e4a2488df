package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestNormalizeQuestion(t *testing.T) {
	tests := []struct {
		name    string
		in      QuestionInput
		wantErr bool
		check   func(t *testing.T, q Question)
	}{
		{
			name: "multiple choice keeps options and defaults required",
			in: QuestionInput{
				Type:     QuestionMultipleChoice,
				Question: "  Favourite colour?  ",
				Options:  []Option{{Text: "Red", Value: "red"}, {Text: "Blue", Value: "blue"}},
			},
			check: func(t *testing.T, q Question) {
				assert.Equal(t, "Favourite colour?", q.Question)
				assert.Len(t, q.Options, 2)
				assert.True(t, q.Required)
				assert.False(t, q.Settings.AllowMultiple)
				assert.NotEmpty(t, q.ID)
			},
		},
		{
			name: "multiple choice with one option fails",
			in: QuestionInput{
				Type:     QuestionMultipleChoice,
				Question: "Pick",
				Options:  []Option{{Text: "Only", Value: "only"}},
			},
			wantErr: true,
		},
		{
			name: "ranking option with blank value fails",
			in: QuestionInput{
				Type:     QuestionRanking,
				Question: "Rank",
				Options:  []Option{{Text: "A", Value: "a"}, {Text: "B", Value: "  "}},
			},
			wantErr: true,
		},
		{
			name: "rating raises max to min",
			in: QuestionInput{
				Type:     QuestionRating,
				Question: "Rate",
				Settings: QuestionSettingsInput{MinRating: 7, MaxRating: 3},
			},
			check: func(t *testing.T, q Question) {
				assert.Equal(t, 7, q.Settings.MinRating)
				assert.Equal(t, 7, q.Settings.MaxRating)
			},
		},
		{
			name: "rating defaults to 1..5",
			in:   QuestionInput{Type: QuestionRating, Question: "Rate"},
			check: func(t *testing.T, q Question) {
				assert.Equal(t, 1, q.Settings.MinRating)
				assert.Equal(t, 5, q.Settings.MaxRating)
			},
		},
		{
			name:    "rating above 10 fails",
			in:      QuestionInput{Type: QuestionRating, Question: "Rate", Settings: QuestionSettingsInput{MaxRating: 11}},
			wantErr: true,
		},
		{
			name: "word cloud defaults max words",
			in:   QuestionInput{Type: QuestionWordCloud, Question: "Words"},
			check: func(t *testing.T, q Question) {
				assert.Equal(t, DefaultMaxWords, q.Settings.MaxWords)
				assert.Nil(t, q.Options)
			},
		},
		{
			name: "options dropped for open ended",
			in: QuestionInput{
				Type:     QuestionOpenEnded,
				Question: "Thoughts?",
				Options:  []Option{{Text: "x", Value: "x"}},
				Required: boolPtr(false),
			},
			check: func(t *testing.T, q Question) {
				assert.Nil(t, q.Options)
				assert.False(t, q.Required)
			},
		},
		{
			name:    "unknown type fails",
			in:      QuestionInput{Type: "slider", Question: "?"},
			wantErr: true,
		},
		{
			name:    "blank text fails",
			in:      QuestionInput{Type: QuestionOpenEnded, Question: "   "},
			wantErr: true,
		},
		{
			name:    "text over 500 chars fails",
			in:      QuestionInput{Type: QuestionOpenEnded, Question: strings.Repeat("a", 501)},
			wantErr: true,
		},
		{
			name: "existing id is kept",
			in:   QuestionInput{ID: "q-1", Type: QuestionOpenEnded, Question: "Keep"},
			check: func(t *testing.T, q Question) {
				assert.Equal(t, "q-1", q.ID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NormalizeQuestion(0, tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				var verr *ValidationError
				assert.True(t, errors.As(err, &verr))
				return
			}
			require.NoError(t, err)
			tt.check(t, q)
		})
	}
}

func TestNormalizeQuestions_RequiresOne(t *testing.T) {
	_, err := NormalizeQuestions(nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNormalizeQuestions_DuplicateIDsReassigned(t *testing.T) {
	qs, err := NormalizeQuestions([]QuestionInput{
		{ID: "same", Type: QuestionOpenEnded, Question: "One"},
		{ID: "same", Type: QuestionOpenEnded, Question: "Two"},
	})
	require.NoError(t, err)
	assert.Equal(t, "same", qs[0].ID)
	assert.NotEqual(t, "same", qs[1].ID)
}
