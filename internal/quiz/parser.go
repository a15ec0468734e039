package quiz

import (
	"regexp"
	"strings"

	"github.com/hyperjump/vidlens/internal/models"
)

var questionMarker = regexp.MustCompile(`QUESTION \d+:`)

// Parse extracts questions from the text quiz format. Blocks without exactly
// four options and a valid CORRECT letter are dropped. At most limit questions
// are returned; limit <= 0 means no cap.
func Parse(response string, limit int) []models.QuizQuestion {
	blocks := questionMarker.Split(response, -1)
	if len(blocks) < 2 {
		return nil
	}
	var questions []models.QuizQuestion
	for _, block := range blocks[1:] {
		if limit > 0 && len(questions) == limit {
			break
		}
		q, ok := parseBlock(block)
		if ok {
			questions = append(questions, q)
		}
	}
	return questions
}

func parseBlock(block string) (models.QuizQuestion, bool) {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 6 {
		return models.QuizQuestion{}, false
	}

	q := models.QuizQuestion{Question: lines[0], CorrectAnswer: -1}
	// Options are the four lines after the question; anything else there drops the block.
	for _, line := range lines[1:5] {
		if isOptionLine(line) {
			q.Options = append(q.Options, strings.TrimSpace(line[2:]))
		}
	}
	for _, line := range lines[5:] {
		switch {
		case strings.HasPrefix(line, "CORRECT:"):
			if idx, ok := letterIndex(strings.TrimPrefix(line, "CORRECT:")); ok {
				q.CorrectAnswer = idx
			}
		case strings.HasPrefix(line, "EXPLANATION:"):
			q.Explanation = strings.TrimSpace(strings.TrimPrefix(line, "EXPLANATION:"))
		}
	}
	return q, q.Valid()
}

func isOptionLine(line string) bool {
	if len(line) < 2 || line[1] != ')' {
		return false
	}
	return line[0] >= 'A' && line[0] <= 'D'
}

// letterIndex maps a single letter "A".."D" (any case, surrounding space) to 0..3.
// Anything else, such as "B) two", is rejected rather than repaired.
func letterIndex(s string) (int, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 1 || s[0] < 'A' || s[0] > 'D' {
		return -1, false
	}
	return int(s[0] - 'A'), true
}
