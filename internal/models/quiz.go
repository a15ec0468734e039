package models

// QuizSource records how a quiz was produced.
type QuizSource string

const (
	QuizSourceStructured QuizSource = "structured"
	QuizSourceText       QuizSource = "text"
	QuizSourceFallback   QuizSource = "fallback"
)

// OptionCount is the number of options every quiz question carries.
const OptionCount = 4

// QuizQuestion is a multiple-choice question. Options has exactly OptionCount
// entries and CorrectAnswer indexes into it.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Valid reports whether q has exactly OptionCount options and an in-range answer.
func (q QuizQuestion) Valid() bool {
	return len(q.Options) == OptionCount && q.CorrectAnswer >= 0 && q.CorrectAnswer < OptionCount
}

// Quiz is a generated set of questions for one video.
type Quiz struct {
	Title          string         `json:"title"`
	Questions      []QuizQuestion `json:"questions"`
	TotalQuestions int            `json:"total_questions"`
	Source         QuizSource     `json:"source"`
	DegradedReason string         `json:"degraded_reason,omitempty"`
}

// QuestionResult is the per-question detail of a scored quiz.
type QuestionResult struct {
	QuestionIndex int      `json:"question_index"`
	Question      string   `json:"question"`
	UserAnswer    int      `json:"user_answer"`
	CorrectAnswer int      `json:"correct_answer"`
	IsCorrect     bool     `json:"is_correct"`
	Options       []string `json:"options"`
}

// QuizResult is derived from a quiz and a set of answers; it is never stored.
type QuizResult struct {
	Score      int              `json:"score"`
	Total      int              `json:"total"`
	Percentage float64          `json:"percentage"`
	Passed     bool             `json:"passed"`
	Results    []QuestionResult `json:"results"`
}
