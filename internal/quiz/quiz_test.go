package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/vidlens/internal/config"
	"github.com/hyperjump/vidlens/internal/llm"
	"github.com/hyperjump/vidlens/internal/models"
)

func textBlock(n int, correct string) string {
	return fmt.Sprintf("QUESTION %d: What is item %d?\nA) one\nB) two\nC) three\nD) four\nCORRECT: %s\nEXPLANATION: because %d\n\n", n, n, correct, n)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		response string
		limit    int
		want     int
	}{
		{"no markers", "Here is your quiz!", 5, 0},
		{"two valid", textBlock(1, "A") + textBlock(2, "d"), 5, 2},
		{"three options dropped", "QUESTION 1: Q?\nA) a\nB) b\nC) c\nCORRECT: A\nEXPLANATION: x\n" + textBlock(2, "B"), 5, 1},
		{"bad letter dropped", textBlock(1, "E") + textBlock(2, "C"), 5, 1},
		{"missing correct dropped", "QUESTION 1: Q?\nA) a\nB) b\nC) c\nD) d\nEXPLANATION: x\n", 5, 0},
		{"capped", textBlock(1, "A") + textBlock(2, "A") + textBlock(3, "A"), 2, 2},
		{"no cap", textBlock(1, "A") + textBlock(2, "A") + textBlock(3, "A"), 0, 3},
		{"option-like line after correct kept", "QUESTION 1: Q?\nA) a\nB) b\nC) c\nD) d\nCORRECT: C\nEXPLANATION: see\nA) note\n", 5, 1},
		{"preamble before options dropped", "QUESTION 1: Q?\nPick one:\nA) a\nB) b\nC) c\nD) d\nCORRECT: A\n", 5, 0},
		{"correct with option text dropped", textBlock(1, "B) two"), 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.response, tt.limit)
			if len(got) != tt.want {
				t.Fatalf("Parse() returned %d questions, want %d: %+v", len(got), tt.want, got)
			}
			for _, q := range got {
				if !q.Valid() {
					t.Errorf("invalid question accepted: %+v", q)
				}
			}
		})
	}
}

func TestParseFields(t *testing.T) {
	got := Parse("Sure!\n"+textBlock(1, " c "), 5)
	if len(got) != 1 {
		t.Fatalf("got %d questions", len(got))
	}
	q := got[0]
	if q.Question != "What is item 1?" {
		t.Errorf("question = %q", q.Question)
	}
	if strings.Join(q.Options, ",") != "one,two,three,four" {
		t.Errorf("options = %v", q.Options)
	}
	if q.CorrectAnswer != 2 || q.Explanation != "because 1" {
		t.Errorf("answer=%d explanation=%q", q.CorrectAnswer, q.Explanation)
	}
}

func TestLetterIndex(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"A", 0, true},
		{" d ", 3, true},
		{"B) two", -1, false},
		{"C.", -1, false},
		{"E", -1, false},
		{"", -1, false},
		{"Answer", -1, false},
	}
	for _, tt := range tests {
		got, ok := letterIndex(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("letterIndex(%q) = %d, %v", tt.in, got, ok)
		}
	}
}

func newTestGenerator(m *llm.Mock, opts ...GeneratorOption) *Generator {
	opts = append(opts, WithLogger(zap.NewNop()))
	return NewGenerator(m, config.QuizConfig{}, opts...)
}

func TestGenerate_Structured(t *testing.T) {
	m := &llm.Mock{Handler: func(ctx context.Context, req llm.Request) (string, error) {
		if req.Schema == nil {
			t.Error("expected a structured request first")
		}
		return "```json\n" + `{"questions":[
			{"question":"Q1?","options":["a","b","c","d"],"correct_answer":"B","explanation":"e1"},
			{"question":"Q2?","options":["a","b","c"],"correct_answer":"A"},
			{"question":"Q3?","options":["a","b","c","d"],"correct_answer":"D"}
		]}` + "\n```", nil
	}}
	q := newTestGenerator(m).Generate(context.Background(), "transcript", "Go Talk", 5)
	if q.Source != models.QuizSourceStructured {
		t.Fatalf("source = %s (%s)", q.Source, q.DegradedReason)
	}
	if q.Title != "Quiz: Go Talk" || q.TotalQuestions != 2 || len(q.Questions) != 2 {
		t.Errorf("quiz = %+v", q)
	}
	if q.Questions[0].CorrectAnswer != 1 || q.Questions[1].CorrectAnswer != 3 {
		t.Errorf("answers = %d, %d", q.Questions[0].CorrectAnswer, q.Questions[1].CorrectAnswer)
	}
	if len(m.Calls()) != 1 {
		t.Errorf("calls = %d", len(m.Calls()))
	}
}

func TestGenerate_TextFallbackAfterBadJSON(t *testing.T) {
	m := &llm.Mock{Handler: func(ctx context.Context, req llm.Request) (string, error) {
		if req.Schema != nil {
			return "I cannot produce JSON", nil
		}
		return textBlock(1, "A") + textBlock(2, "B") + textBlock(3, "C"), nil
	}}
	q := newTestGenerator(m).Generate(context.Background(), "t", "", 2)
	if q.Source != models.QuizSourceText {
		t.Fatalf("source = %s", q.Source)
	}
	if q.Title != "Video Quiz" || q.TotalQuestions != 2 {
		t.Errorf("quiz = %+v", q)
	}
	calls := m.Calls()
	if len(calls) != 2 || !strings.Contains(calls[1].Prompt, "QUESTION 1:") || !strings.Contains(calls[1].Prompt, "with 2 questions") {
		t.Errorf("text prompt not sent as expected: %+v", calls)
	}
}

func TestGenerate_Fallbacks(t *testing.T) {
	tests := []struct {
		name    string
		handler func(context.Context, llm.Request) (string, error)
		reason  string
	}{
		{
			name:    "llm error",
			handler: func(context.Context, llm.Request) (string, error) { return "", errors.New("quota exceeded") },
			reason:  "quota exceeded",
		},
		{
			name:    "unparseable",
			handler: func(context.Context, llm.Request) (string, error) { return "no quiz today", nil },
			reason:  "no valid questions",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newTestGenerator(&llm.Mock{Handler: tt.handler}).Generate(context.Background(), "t", "Talk", 5)
			if q == nil {
				t.Fatal("Generate returned nil")
			}
			if q.Source != models.QuizSourceFallback || q.TotalQuestions != 3 || len(q.Questions) != 3 {
				t.Errorf("quiz = %+v", q)
			}
			if !strings.Contains(q.DegradedReason, tt.reason) {
				t.Errorf("reason = %q", q.DegradedReason)
			}
		})
	}
}

func TestGenerate_Limits(t *testing.T) {
	many := ""
	for i := 1; i <= 12; i++ {
		many += textBlock(i, "A")
	}
	tests := []struct {
		requested int
		want      int
	}{
		{0, 5},
		{-3, 5},
		{3, 3},
		{5, 5},
		{50, 10},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.requested), func(t *testing.T) {
			m := llm.NewMock(many)
			q := newTestGenerator(m, WithStructuredOutput(false)).Generate(context.Background(), "t", "x", tt.requested)
			if q.TotalQuestions != tt.want {
				t.Errorf("requested %d: got %d questions", tt.requested, q.TotalQuestions)
			}
			if len(m.Calls()) != 1 || m.Calls()[0].Schema != nil {
				t.Error("structured output should be skipped")
			}
		})
	}
}

func TestGenerate_TruncatesTranscript(t *testing.T) {
	m := llm.NewMock(textBlock(1, "A"))
	g := NewGenerator(m, config.QuizConfig{MaxTranscriptLength: 10}, WithStructuredOutput(false))
	g.Generate(context.Background(), strings.Repeat("é", 50), "x", 1)
	prompt := m.Calls()[0].Prompt
	if !strings.Contains(prompt, strings.Repeat("é", 10)+"\n") || strings.Contains(prompt, strings.Repeat("é", 11)) {
		t.Error("transcript not truncated to 10 characters")
	}
}

func TestGenerate_NilLLM(t *testing.T) {
	q := NewGenerator(nil, config.QuizConfig{}).Generate(context.Background(), "t", "x", 3)
	if q.Source != models.QuizSourceFallback {
		t.Errorf("source = %s", q.Source)
	}
}

func sampleQuiz() *models.Quiz {
	q := Fallback("x", "")
	q.Questions[1].CorrectAnswer = 2
	return q
}

func TestCalculateScore(t *testing.T) {
	tests := []struct {
		name       string
		answers    map[string]int
		score      int
		percentage float64
		passed     bool
	}{
		{"all correct", map[string]int{"0": 0, "1": 2, "2": 0}, 3, 100, true},
		{"two of three", map[string]int{"0": 0, "1": 2, "2": 3}, 2, 66.7, true},
		{"one of three", map[string]int{"0": 0, "1": 1}, 1, 33.3, false},
		{"empty answers", map[string]int{}, 0, 0, false},
		{"unknown keys", map[string]int{"7": 0}, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := CalculateScore(tt.answers, sampleQuiz())
			if r.Score != tt.score || r.Percentage != tt.percentage || r.Passed != tt.passed || r.Total != 3 {
				t.Errorf("result = %+v", r)
			}
		})
	}
}

func TestCalculateScore_Details(t *testing.T) {
	quiz := sampleQuiz()
	answers := map[string]int{"0": 0, "2": 1}
	r := CalculateScore(answers, quiz)
	if len(r.Results) != 3 {
		t.Fatalf("results = %d", len(r.Results))
	}
	if r.Results[1].UserAnswer != -1 || r.Results[1].IsCorrect {
		t.Errorf("missing answer = %+v", r.Results[1])
	}
	if r.Results[2].UserAnswer != 1 || r.Results[2].CorrectAnswer != 0 {
		t.Errorf("wrong answer = %+v", r.Results[2])
	}
	again := CalculateScore(answers, quiz)
	if again.Score != r.Score || again.Percentage != r.Percentage {
		t.Error("scoring is not idempotent")
	}
}

func TestCalculateScore_EmptyQuiz(t *testing.T) {
	r := CalculateScore(map[string]int{"0": 1}, &models.Quiz{})
	if r.Total != 0 || r.Score != 0 || r.Passed {
		t.Errorf("result = %+v", r)
	}
	if r := CalculateScore(nil, nil); r.Total != 0 {
		t.Errorf("nil quiz = %+v", r)
	}
}

func TestGeneratorScoreUsesConfiguredPassMark(t *testing.T) {
	g := NewGenerator(nil, config.QuizConfig{PassingScore: 70})
	r := g.Score(map[string]int{"0": 0, "1": 2}, sampleQuiz())
	if r.Percentage != 66.7 || r.Passed {
		t.Errorf("result = %+v", r)
	}
}

func TestGenerate_Temperature(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.QuizConfig
		want float64
	}{
		{"unset uses default", config.QuizConfig{}, 0.3},
		{"explicit zero kept", config.QuizConfig{Temperature: config.Float64(0)}, 0},
		{"explicit value", config.QuizConfig{Temperature: config.Float64(1.1)}, 1.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := llm.NewMock("not a quiz")
			NewGenerator(m, tt.cfg).Generate(context.Background(), "transcript", "Go Talk", 3)
			calls := m.Calls()
			if len(calls) == 0 {
				t.Fatal("no llm calls")
			}
			for _, c := range calls {
				if c.Temperature != tt.want {
					t.Errorf("temperature = %v, want %v", c.Temperature, tt.want)
				}
			}
		})
	}
}
