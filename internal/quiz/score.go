package quiz

import (
	"strconv"

	"github.com/hyperjump/vidlens/internal/models"
	"github.com/hyperjump/vidlens/pkg/utils"
)

// PassingPercentage is the default pass mark.
const PassingPercentage = 60.0

// CalculateScore grades answers against quiz with the default pass mark.
// Answers are keyed by question index ("0", "1", ...); a missing answer is
// wrong and reported as -1.
func CalculateScore(answers map[string]int, quiz *models.Quiz) models.QuizResult {
	return ScoreWithThreshold(answers, quiz, PassingPercentage)
}

// ScoreWithThreshold is CalculateScore with an explicit pass mark.
func ScoreWithThreshold(answers map[string]int, quiz *models.Quiz, passing float64) models.QuizResult {
	if quiz == nil {
		return models.QuizResult{Results: []models.QuestionResult{}}
	}
	total := len(quiz.Questions)
	if len(answers) == 0 || total == 0 {
		return models.QuizResult{Total: total, Results: []models.QuestionResult{}}
	}

	score := 0
	results := make([]models.QuestionResult, total)
	for i, q := range quiz.Questions {
		answer, ok := answers[strconv.Itoa(i)]
		if !ok {
			answer = -1
		}
		correct := ok && answer == q.CorrectAnswer
		if correct {
			score++
		}
		results[i] = models.QuestionResult{
			QuestionIndex: i,
			Question:      q.Question,
			UserAnswer:    answer,
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     correct,
			Options:       q.Options,
		}
	}
	percentage := float64(score) / float64(total) * 100
	return models.QuizResult{
		Score:      score,
		Total:      total,
		Percentage: utils.Round1(percentage),
		Passed:     percentage >= passing,
		Results:    results,
	}
}
