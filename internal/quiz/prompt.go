package quiz

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/vidlens/internal/llm"
	"github.com/hyperjump/vidlens/internal/models"
)

const textTemplate = `Create a multiple-choice quiz with %d questions about the following video.

Video Title: %s

Transcript:
%s

Each question must test understanding of the video content and have exactly four options, one of them correct.

Format every question exactly like this:

QUESTION 1: [question text]
A) [option]
B) [option]
C) [option]
D) [option]
CORRECT: [A, B, C or D]
EXPLANATION: [one sentence]

Number the questions QUESTION 1:, QUESTION 2: and so on. Do not add any other text.`

const structuredTemplate = `Create a multiple-choice quiz with %d questions about the following video.

Video Title: %s

Transcript:
%s

Each question must test understanding of the video content and have exactly four options.
Set correct_answer to the letter (A, B, C or D) of the correct option and give a one sentence explanation.`

func textPrompt(transcript, title string, n int) string {
	return fmt.Sprintf(textTemplate, n, title, transcript)
}

var (
	four          = int64(models.OptionCount)
	answerLetters = []string{"A", "B", "C", "D"}
)

// quizSchema describes the structured response.
func quizSchema(n int) *llm.Schema {
	one := int64(1)
	upTo := int64(n)
	return &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"questions": {
				Type:     llm.TypeArray,
				MinItems: &one,
				MaxItems: &upTo,
				Items: &llm.Schema{
					Type: llm.TypeObject,
					Properties: map[string]*llm.Schema{
						"question":       {Type: llm.TypeString},
						"options":        {Type: llm.TypeArray, Items: &llm.Schema{Type: llm.TypeString}, MinItems: &four, MaxItems: &four},
						"correct_answer": {Type: llm.TypeString, Enum: answerLetters},
						"explanation":    {Type: llm.TypeString},
					},
					Required: []string{"question", "options", "correct_answer"},
				},
			},
		},
		Required: []string{"questions"},
	}
}

type structuredQuiz struct {
	Questions []structuredQuestion `json:"questions"`
}

type structuredQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

func (g *Generator) generateStructured(ctx context.Context, transcript, title string, limit int) ([]models.QuizQuestion, error) {
	out, err := g.llm.Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf(structuredTemplate, limit, title, transcript),
		Temperature: g.cfg.TemperatureOrDefault(),
		Schema:      quizSchema(limit),
	})
	if err != nil {
		return nil, err
	}
	var resp structuredQuiz
	if err := llm.DecodeJSON(out, &resp); err != nil {
		return nil, fmt.Errorf("decode structured quiz: %w", err)
	}
	questions := make([]models.QuizQuestion, 0, len(resp.Questions))
	for _, sq := range resp.Questions {
		idx, ok := letterIndex(sq.CorrectAnswer)
		q := models.QuizQuestion{
			Question:      strings.TrimSpace(sq.Question),
			Options:       trimAll(sq.Options),
			CorrectAnswer: idx,
			Explanation:   strings.TrimSpace(sq.Explanation),
		}
		if !ok || q.Question == "" || !q.Valid() {
			continue
		}
		questions = append(questions, q)
		if len(questions) == limit {
			break
		}
	}
	return questions, nil
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
