package domain

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// MaxCloudWords caps the word-cloud output
const MaxCloudWords = 20

// OptionCount multiple-choice tally for one option
type OptionCount struct {
	Option string `json:"option"`
	Value  string `json:"value"`
	Count  int    `json:"count"`
}

// RatingBucket number of answers for one rating value
type RatingBucket struct {
	Rating int `json:"rating"`
	Count  int `json:"count"`
}

// WordCount word-cloud frequency entry
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// RankingEntry aggregated ranking position of one option
type RankingEntry struct {
	Option          string  `json:"option"`
	AveragePosition float64 `json:"averagePosition"`
	ResponseCount   int     `json:"responseCount"`
}

// QuestionSummary chart data for one question; only the fields matching
// the question type are populated.
type QuestionSummary struct {
	QuestionID   string         `json:"questionId"`
	Question     string         `json:"question"`
	Type         QuestionType   `json:"type"`
	TotalAnswers int            `json:"totalAnswers"`
	Options      []OptionCount  `json:"options,omitempty"`
	Ratings      []RatingBucket `json:"ratings,omitempty"`
	Words        []WordCount    `json:"words,omitempty"`
	Ranking      []RankingEntry `json:"ranking,omitempty"`
	Texts        []string       `json:"texts,omitempty"`
}

// Summarize folds all stored answers to q into chart data. Ranking entries
// are ordered by ascending average position, with options nobody ranked
// (average 0) listed last rather than first.
func Summarize(p *Poll, q Question) QuestionSummary {
	answers := answersFor(p, q.ID)
	s := QuestionSummary{
		QuestionID:   q.ID,
		Question:     q.Question,
		Type:         q.Type,
		TotalAnswers: len(answers),
	}
	switch q.Type {
	case QuestionMultipleChoice:
		s.Options = countOptions(q, answers)
	case QuestionRating:
		s.Ratings = bucketRatings(q, answers)
	case QuestionWordCloud:
		s.Words = countWords(answers)
	case QuestionRanking:
		s.Ranking = rankOptions(q, answers)
	case QuestionOpenEnded:
		s.Texts = make([]string, 0, len(answers))
		for _, a := range answers {
			s.Texts = append(s.Texts, AnswerText(a))
		}
	}
	return s
}

// SummarizeAll summarizes every question in declaration order
func SummarizeAll(p *Poll) []QuestionSummary {
	out := make([]QuestionSummary, 0, len(p.Questions))
	for _, q := range p.Questions {
		out = append(out, Summarize(p, q))
	}
	return out
}

func answersFor(p *Poll, questionID string) [][]byte {
	var out [][]byte
	for _, r := range p.Responses {
		for _, a := range r.Answers {
			if a.QuestionID == questionID {
				out = append(out, a.Answer)
			}
		}
	}
	return out
}

func countOptions(q Question, answers [][]byte) []OptionCount {
	index := make(map[string]int, len(q.Options))
	out := make([]OptionCount, len(q.Options))
	for i, opt := range q.Options {
		out[i] = OptionCount{Option: opt.Text, Value: opt.Value}
		if _, dup := index[opt.Value]; !dup {
			index[opt.Value] = i
		}
	}
	for _, a := range answers {
		for _, v := range AnswerValues(a) {
			if i, ok := index[v]; ok {
				out[i].Count++
			}
		}
	}
	return out
}

func bucketRatings(q Question, answers [][]byte) []RatingBucket {
	lo, hi := q.Settings.MinRating, q.Settings.MaxRating
	if hi < lo {
		hi = lo
	}
	out := make([]RatingBucket, 0, hi-lo+1)
	for r := lo; r <= hi; r++ {
		out = append(out, RatingBucket{Rating: r})
	}
	for _, a := range answers {
		for _, n := range answerInts(a) {
			if n >= lo && n <= hi {
				out[n-lo].Count++
			}
		}
	}
	return out
}

func countWords(answers [][]byte) []WordCount {
	counts := make(map[string]int)
	var order []string
	for _, a := range answers {
		for _, text := range AnswerValues(a) {
			for _, w := range strings.FieldsFunc(text, isWordSeparator) {
				w = strings.ToLower(strings.TrimSpace(w))
				if w == "" {
					continue
				}
				if counts[w] == 0 {
					order = append(order, w)
				}
				counts[w]++
			}
		}
	}
	out := make([]WordCount, 0, len(order))
	for _, w := range order {
		out = append(out, WordCount{Word: w, Count: counts[w]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > MaxCloudWords {
		out = out[:MaxCloudWords]
	}
	return out
}

func isWordSeparator(r rune) bool {
	return r == ',' || unicode.IsSpace(r)
}

// rankOptions averages 1-based positions per option. Options nobody ranked
// report 0 and are listed after the ranked ones.
func rankOptions(q Question, answers [][]byte) []RankingEntry {
	sums := make([]int, len(q.Options))
	counts := make([]int, len(q.Options))
	for _, a := range answers {
		seen := make(map[int]bool, len(q.Options))
		for pos, idx := range rankingIndices(q, a) {
			if idx < 0 || idx >= len(q.Options) || seen[idx] {
				continue
			}
			seen[idx] = true
			sums[idx] += pos + 1
			counts[idx]++
		}
	}
	out := make([]RankingEntry, len(q.Options))
	for i, opt := range q.Options {
		out[i] = RankingEntry{Option: opt.Text, ResponseCount: counts[i]}
		if counts[i] > 0 {
			out[i].AveragePosition = float64(sums[i]) / float64(counts[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.ResponseCount == 0) != (b.ResponseCount == 0) {
			return b.ResponseCount == 0
		}
		return a.AveragePosition < b.AveragePosition
	})
	return out
}

// rankingIndices reads an ordered list of option indices. Entries may be
// numbers, numeric strings or option values.
func rankingIndices(q Question, raw []byte) []int {
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]int, 0, len(items))
	for _, it := range items {
		idx := -1
		switch v := it.(type) {
		case float64:
			if v == float64(int(v)) {
				idx = int(v)
			}
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				idx = n
			} else {
				for i, opt := range q.Options {
					if opt.Value == v {
						idx = i
						break
					}
				}
			}
		}
		out = append(out, idx)
	}
	return out
}

// AnswerValues flattens an answer into its scalar string values. Arrays
// yield one entry per element; objects yield their text field.
func AnswerValues(raw []byte) []string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	if arr, ok := v.([]any); ok {
		out := make([]string, 0, len(arr))
		for _, it := range arr {
			if s, ok := scalarString(it); ok {
				out = append(out, s)
			}
		}
		return out
	}
	if s, ok := scalarString(v); ok {
		return []string{s}
	}
	if obj, ok := v.(map[string]any); ok {
		if s, ok := obj["text"].(string); ok {
			return []string{s}
		}
	}
	return nil
}

// AnswerText renders an answer as display text. Arrays are joined with
// "; " and objects without a text field fall back to their JSON.
func AnswerText(raw []byte) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	switch t := v.(type) {
	case []any:
		parts := make([]string, 0, len(t))
		for _, it := range t {
			if s, ok := scalarString(it); ok {
				parts = append(parts, s)
			} else {
				b, _ := json.Marshal(it)
				parts = append(parts, string(b))
			}
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		if s, ok := t["text"].(string); ok {
			return s
		}
		return string(raw)
	}
	if s, ok := scalarString(v); ok {
		return s
	}
	return ""
}

func answerInts(raw []byte) []int {
	var out []int
	for _, s := range AnswerValues(raw) {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || f != float64(int(f)) {
			continue
		}
		out = append(out, int(f))
	}
	return out
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}
