package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestExportRows(t *testing.T) {
	p := testPoll(t)
	_, _, err := p.Join("Alice", "alice@example.com", testNow)
	require.NoError(t, err)

	_, err = p.Respond(RespondInput{
		JoinInput: JoinInput{ParticipantName: "Alice", ParticipantEmail: "alice@example.com"},
		Answers: []AnswerInput{
			{QuestionID: p.Questions[0].ID, Answer: json.RawMessage(`["a","b"]`)},
			{QuestionID: p.Questions[2].ID, Answer: json.RawMessage(`"looks good"`)},
		},
	}, testNow.Add(time.Minute))
	require.NoError(t, err)

	p.Responses = append(p.Responses, Response{
		ParticipantID: "gone",
		Answers:       []Answer{{QuestionID: p.Questions[1].ID, Answer: datatypes.JSON(`4`), SubmittedAt: testNow}},
	})

	rows := ExportRows(p)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Participant Name", "Participant Email", "Submitted At", "Q1: Q1", "Q2: Q2", "Q3: Q3"}, rows[0])
	assert.Equal(t, []string{"Alice", "alice@example.com", "2025-03-01T12:01:00.000Z", "a; b", "", "looks good"}, rows[1])
	assert.Equal(t, []string{AnonymousParticipant, "", "2025-03-01T12:00:00.000Z", "", "4", ""}, rows[2])
}

func TestExportCSV_Quoting(t *testing.T) {
	p := testPoll(t)
	p.Questions[0].Question = `Pick, "one"`
	out, err := ExportCSV(p)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), `Participant Name,Participant Email,Submitted At,"Q1: Pick, ""one""",Q2: Q2,Q3: Q3`))
	assert.Equal(t, "poll-ABC123-results.csv", ExportFilename(p))
}
