// Package cli renders vidlens results for the terminal and talks to a running
// vidlens server.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/vidlens/internal/models"
	"github.com/hyperjump/vidlens/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is indented JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

const rule = "─────────────────────────────────────────────────────────"

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnalysis writes a video analysis.
func WriteAnalysis(w io.Writer, a *models.VideoAnalysis, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, a)
	}
	fmt.Fprintf(w, "\n%s\n", a.Title)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Video ID:   %s\n", a.VideoID)
	fmt.Fprintf(w, "Session ID: %s\n", a.SessionID)
	if a.Duration > 0 {
		fmt.Fprintf(w, "Duration:   %s\n", utils.FormatTimestamp(a.Duration))
	}
	if a.StreamURL != "" {
		fmt.Fprintf(w, "Stream:     %s\n", a.StreamURL)
	}
	fmt.Fprintf(w, "Q&A ready:  %t\n", a.RAGReady)
	fmt.Fprintf(w, "\nSummary\n%s\n", a.Summary)
	fmt.Fprintf(w, "\nTopics\n")
	for _, t := range a.Topics {
		fmt.Fprintf(w, "  • %s\n", t)
	}
	if len(a.KeyQuotes) > 0 {
		fmt.Fprintf(w, "\nKey quotes\n")
		for _, q := range a.KeyQuotes {
			fmt.Fprintf(w, "  “%s”\n", q)
		}
	}
	if a.Sentiment != "" || a.TargetAudience != "" {
		fmt.Fprintln(w)
	}
	if a.Sentiment != "" {
		fmt.Fprintf(w, "Sentiment: %s\n", a.Sentiment)
	}
	if a.TargetAudience != "" {
		fmt.Fprintf(w, "Audience:  %s\n", a.TargetAudience)
	}
	for _, warn := range a.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	fmt.Fprintf(w, "\nTranscript preview\n%s\n", utils.Truncate(a.Transcript, 300))
	return nil
}

// WritePosts writes generated social posts.
func WritePosts(w io.Writer, posts []models.SocialMediaPost, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, posts)
	}
	for _, p := range posts {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "[%s] %d characters\n", p.Platform, p.CharacterCount)
		if p.Error != "" {
			fmt.Fprintf(w, "error: %s\n", p.Error)
		}
		fmt.Fprintf(w, "\n%s\n", p.Content)
		if len(p.Hashtags) > 0 {
			fmt.Fprintf(w, "\nHashtags: %s\n", strings.Join(p.Hashtags, " "))
		}
		fmt.Fprintln(w)
	}
	return nil
}

var letters = [models.OptionCount]string{"A", "B", "C", "D"}

// WriteQuiz writes a quiz. showAnswers adds the correct option and explanation.
func WriteQuiz(w io.Writer, q *models.Quiz, format OutputFormat, showAnswers bool) error {
	if format == OutputJSON {
		return writeJSON(w, q)
	}
	fmt.Fprintf(w, "\n%s (%d questions)\n", q.Title, q.TotalQuestions)
	if q.DegradedReason != "" {
		fmt.Fprintf(w, "note: %s\n", q.DegradedReason)
	}
	for i, question := range q.Questions {
		fmt.Fprintf(w, "\n%d. %s\n", i+1, question.Question)
		for j, opt := range question.Options {
			if j < len(letters) {
				fmt.Fprintf(w, "   %s) %s\n", letters[j], opt)
			}
		}
		if showAnswers && question.CorrectAnswer >= 0 && question.CorrectAnswer < len(letters) {
			fmt.Fprintf(w, "   Answer: %s\n", letters[question.CorrectAnswer])
			if question.Explanation != "" {
				fmt.Fprintf(w, "   %s\n", question.Explanation)
			}
		}
	}
	return nil
}

// WriteScore writes a graded quiz.
func WriteScore(w io.Writer, r models.QuizResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, r)
	}
	verdict := "FAILED"
	if r.Passed {
		verdict = "PASSED"
	}
	fmt.Fprintf(w, "\nScore: %d/%d (%.1f%%) %s\n", r.Score, r.Total, r.Percentage, verdict)
	for _, res := range r.Results {
		mark := "✗"
		if res.IsCorrect {
			mark = "✓"
		}
		fmt.Fprintf(w, "%s %d. %s\n", mark, res.QuestionIndex+1, res.Question)
		if !res.IsCorrect {
			fmt.Fprintf(w, "    your answer: %s, correct: %s\n", letter(res.UserAnswer), letter(res.CorrectAnswer))
		}
	}
	return nil
}

func letter(i int) string {
	if i < 0 || i >= len(letters) {
		return "-"
	}
	return letters[i]
}

// WriteSearch writes timestamp search results.
func WriteSearch(w io.Writer, s *models.TimestampSearch, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "\nFound %d moments for %q\n\n", len(s.Shots), s.Query)
	for _, shot := range s.Shots {
		fmt.Fprintf(w, "[%s - %s] %s\n", shot.StartLabel, shot.EndLabel, utils.Truncate(shot.Text, 200))
	}
	if s.StreamURL != "" {
		fmt.Fprintf(w, "\nHighlights stream: %s\n", s.StreamURL)
	}
	return nil
}

// WriteAnswer writes a RAG answer; the sources block, if requested, is part of Text.
func WriteAnswer(w io.Writer, a *Answer, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, a)
	}
	fmt.Fprintf(w, "\n%s\n", a.Text)
	return nil
}

// WriteStats writes RAG session stats.
func WriteStats(w io.Writer, s models.RAGStats, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "status:            %s\n", s.Status)
	if s.SessionID != "" {
		fmt.Fprintf(w, "session_id:        %s\n", s.SessionID)
	}
	fmt.Fprintf(w, "chunks:            %d\n", s.Chunks)
	fmt.Fprintf(w, "retrieval_chain:   %t\n", s.HasRetrievalChain)
	if s.DiskUsageBytes > 0 {
		fmt.Fprintf(w, "disk_usage_bytes:  %d\n", s.DiskUsageBytes)
	}
	if p := s.Parameters; p != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# retrieval parameters")
		fmt.Fprintf(w, "temperature:       %.2f\n", p.Temperature)
		fmt.Fprintf(w, "k:                 %d\n", p.TopK)
		fmt.Fprintf(w, "chain_type:        %s\n", p.ChainType)
		fmt.Fprintf(w, "search_type:       %s\n", p.SearchType)
	}
	return nil
}
