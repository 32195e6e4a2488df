package domain

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"
)

// AnonymousParticipant labels responses whose participant is gone
const AnonymousParticipant = "Anonymous"

const exportTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// ExportRows builds the CSV table: a header row followed by one row per
// response with answers in question order.
func ExportRows(p *Poll) [][]string {
	header := []string{"Participant Name", "Participant Email", "Submitted At"}
	for i, q := range p.Questions {
		header = append(header, fmt.Sprintf("Q%d: %s", i+1, q.Question))
	}
	rows := [][]string{header}

	for _, r := range p.Responses {
		name, email := AnonymousParticipant, ""
		if pt, ok := p.ParticipantByID(r.ParticipantID); ok {
			name, email = pt.Name, pt.Email
		}
		submitted := ""
		if t := r.SubmittedAt(); !t.IsZero() {
			submitted = t.UTC().Format(exportTimeLayout)
		}
		row := []string{name, email, submitted}
		for _, q := range p.Questions {
			row = append(row, answerCell(r, q.ID))
		}
		rows = append(rows, row)
	}
	return rows
}

func answerCell(r Response, questionID string) string {
	for _, a := range r.Answers {
		if a.QuestionID == questionID {
			return AnswerText(a.Answer)
		}
	}
	return ""
}

// ExportCSV renders ExportRows as CSV
func ExportCSV(p *Poll) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(ExportRows(p)); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportFilename download name for a poll's CSV
func ExportFilename(p *Poll) string {
	return fmt.Sprintf("poll-%s-results.csv", p.Code)
}

// ArchiveKey object key for an archived CSV export
func ArchiveKey(p *Poll, now time.Time) string {
	return fmt.Sprintf("exports/%s/%s-v%d.csv", p.Code, now.UTC().Format("20060102T150405Z"), p.Version)
}
