package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func pollWithAnswers(t *testing.T, q QuestionInput, answers ...string) (*Poll, Question) {
	t.Helper()
	questions, err := NormalizeQuestions([]QuestionInput{q})
	require.NoError(t, err)
	p := NewPoll("p", "AAAAAA", "c", PollInput{Title: "t"}, questions, testNow)
	for i, a := range answers {
		p.Responses = append(p.Responses, Response{
			ParticipantID: string(rune('a' + i)),
			Answers:       []Answer{{QuestionID: questions[0].ID, Answer: datatypes.JSON(a), SubmittedAt: testNow}},
		})
	}
	return p, questions[0]
}

func TestSummarize_MultipleChoice(t *testing.T) {
	p, q := pollWithAnswers(t, QuestionInput{
		Type:     QuestionMultipleChoice,
		Question: "Pick",
		Options:  []Option{{Text: "A", Value: "A"}, {Text: "B", Value: "B"}, {Text: "C", Value: "C"}},
	}, `"A"`, `"A"`)

	s := Summarize(p, q)
	assert.Equal(t, []OptionCount{
		{Option: "A", Value: "A", Count: 2},
		{Option: "B", Value: "B", Count: 0},
		{Option: "C", Value: "C", Count: 0},
	}, s.Options)
	assert.Equal(t, 2, s.TotalAnswers)
}

func TestSummarize_MultipleChoiceMultiSelect(t *testing.T) {
	p, q := pollWithAnswers(t, QuestionInput{
		Type:     QuestionMultipleChoice,
		Question: "Pick many",
		Options:  []Option{{Text: "Red", Value: "r"}, {Text: "Green", Value: "g"}},
	}, `["r","g"]`, `["g"]`, `"x"`)

	s := Summarize(p, q)
	assert.Equal(t, 1, s.Options[0].Count)
	assert.Equal(t, 2, s.Options[1].Count)
}

func TestSummarize_RatingZeroFilled(t *testing.T) {
	p, q := pollWithAnswers(t, QuestionInput{
		Type:     QuestionRating,
		Question: "Rate",
		Settings: QuestionSettingsInput{MinRating: 1, MaxRating: 5},
	}, `5`, `"5"`, `3`, `9`, `2.5`)

	s := Summarize(p, q)
	assert.Equal(t, []RatingBucket{
		{Rating: 1, Count: 0},
		{Rating: 2, Count: 0},
		{Rating: 3, Count: 1},
		{Rating: 4, Count: 0},
		{Rating: 5, Count: 2},
	}, s.Ratings)
}

func TestSummarize_WordCloud(t *testing.T) {
	p, q := pollWithAnswers(t, QuestionInput{
		Type:     QuestionWordCloud,
		Question: "Fruit",
	}, `"apple, Banana"`, `"banana apple"`)

	s := Summarize(p, q)
	assert.Equal(t, []WordCount{{Word: "apple", Count: 2}, {Word: "banana", Count: 2}}, s.Words)
}

func TestSummarize_WordCloudTop20(t *testing.T) {
	var answers []string
	for i := 0; i < 25; i++ {
		answers = append(answers, `"w`+string(rune('a'+i))+`"`)
	}
	answers = append(answers, `"wz wz"`)
	p, q := pollWithAnswers(t, QuestionInput{Type: QuestionWordCloud, Question: "Words"}, answers...)

	s := Summarize(p, q)
	require.Len(t, s.Words, MaxCloudWords)
	assert.Equal(t, WordCount{Word: "wz", Count: 2}, s.Words[0])
	assert.Equal(t, "wa", s.Words[1].Word)
}

func TestSummarize_RankingTie(t *testing.T) {
	p, q := pollWithAnswers(t, QuestionInput{
		Type:     QuestionRanking,
		Question: "Rank",
		Options:  []Option{{Text: "X", Value: "x"}, {Text: "Y", Value: "y"}},
	}, `[1,0]`, `[0,1]`)

	s := Summarize(p, q)
	assert.Equal(t, []RankingEntry{
		{Option: "X", AveragePosition: 1.5, ResponseCount: 2},
		{Option: "Y", AveragePosition: 1.5, ResponseCount: 2},
	}, s.Ranking)
}

func TestSummarize_RankingOrderAndUnused(t *testing.T) {
	p, q := pollWithAnswers(t, QuestionInput{
		Type:     QuestionRanking,
		Question: "Rank",
		Options:  []Option{{Text: "X", Value: "x"}, {Text: "Y", Value: "y"}, {Text: "Z", Value: "z"}},
	}, `["1","0"]`, `["y","x"]`)

	s := Summarize(p, q)
	require.Len(t, s.Ranking, 3)
	assert.Equal(t, "Y", s.Ranking[0].Option)
	assert.Equal(t, 1.0, s.Ranking[0].AveragePosition)
	assert.Equal(t, "X", s.Ranking[1].Option)
	assert.Equal(t, 2.0, s.Ranking[1].AveragePosition)
	assert.Equal(t, RankingEntry{Option: "Z"}, s.Ranking[2])
}

func TestSummarize_OpenEndedVerbatim(t *testing.T) {
	p, q := pollWithAnswers(t, QuestionInput{
		Type:     QuestionOpenEnded,
		Question: "Say",
	}, `"Hello, World"`, `{"text":"structured"}`, `42`)

	s := Summarize(p, q)
	assert.Equal(t, []string{"Hello, World", "structured", "42"}, s.Texts)
}

func TestAnswerText(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"plain"`, "plain"},
		{`3`, "3"},
		{`["a","b"]`, "a; b"},
		{`[2,0,1]`, "2; 0; 1"},
		{`{"text":"t"}`, "t"},
		{`{"other":1}`, `{"other":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AnswerText(json.RawMessage(tt.raw)), tt.raw)
	}
}
