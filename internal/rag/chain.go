package rag

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/vidlens/internal/llm"
)

// Chain types.
const (
	ChainStuff     = "stuff"
	ChainMapReduce = "map_reduce"
	ChainRefine    = "refine"
)

// Search types.
const (
	SearchSimilarity = "similarity"
	SearchMMR        = "mmr"
	SearchKeyword    = "keyword"
	SearchHybrid     = "hybrid"
)

const answerPrompt = `You are an AI assistant helping users understand video content. Answer the user's question using the context taken from the video transcript.

Context from video transcript:
%s

User Question: %s

Instructions:
1. Answer based primarily on the provided context
2. Be specific and detailed in your response
3. If the context doesn't contain enough information, mention that clearly
4. Quote relevant parts from the transcript when appropriate
5. Keep your response focused and relevant to the question
6. If the question cannot be answered from the context, say so explicitly

Answer:`

const mapPrompt = `Use the following portion of a video transcript to see if any of the text is relevant to answer the question. Return any relevant text verbatim. If nothing is relevant, return NONE.

Transcript portion:
%s

Question: %s

Relevant text:`

const refinePrompt = `The original question is: %s

We have an existing answer based on parts of the video transcript:
%s

Refine the existing answer (only if needed) with the additional context below. If the context isn't useful, return the existing answer unchanged.

Additional context:
%s

Refined answer:`

// chainRunner turns retrieved contexts into an answer.
type chainRunner struct {
	llm         llm.Completer
	temperature float64
	maxTokens   int
}

func (c *chainRunner) complete(ctx context.Context, prompt string) (string, error) {
	out, err := c.llm.Complete(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (c *chainRunner) run(ctx context.Context, chainType, question string, contexts []string) (string, error) {
	switch chainType {
	case ChainMapReduce:
		return c.mapReduce(ctx, question, contexts)
	case ChainRefine:
		return c.refine(ctx, question, contexts)
	default:
		return c.stuff(ctx, question, contexts)
	}
}

// stuff puts every context into one prompt.
func (c *chainRunner) stuff(ctx context.Context, question string, contexts []string) (string, error) {
	return c.complete(ctx, fmt.Sprintf(answerPrompt, strings.Join(contexts, "\n\n"), question))
}

// mapReduce extracts the relevant text of each context concurrently, then answers
// from the extracts. Contexts with nothing relevant are dropped.
func (c *chainRunner) mapReduce(ctx context.Context, question string, contexts []string) (string, error) {
	extracts := make([]string, len(contexts))
	g, gctx := errgroup.WithContext(ctx)
	for i, text := range contexts {
		g.Go(func() error {
			out, err := c.complete(gctx, fmt.Sprintf(mapPrompt, text, question))
			if err != nil {
				return fmt.Errorf("map step %d: %w", i, err)
			}
			extracts[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	kept := extracts[:0]
	for _, e := range extracts {
		if e != "" && !strings.EqualFold(e, "NONE") {
			kept = append(kept, e)
		}
	}
	return c.stuff(ctx, question, kept)
}

// refine answers from the first context and revises the answer with each following one.
func (c *chainRunner) refine(ctx context.Context, question string, contexts []string) (string, error) {
	if len(contexts) == 0 {
		return c.stuff(ctx, question, nil)
	}
	answer, err := c.stuff(ctx, question, contexts[:1])
	if err != nil {
		return "", err
	}
	for i, text := range contexts[1:] {
		answer, err = c.complete(ctx, fmt.Sprintf(refinePrompt, question, answer, text))
		if err != nil {
			return "", fmt.Errorf("refine step %d: %w", i+1, err)
		}
	}
	return answer, nil
}

func validChainType(t string) bool {
	return t == ChainStuff || t == ChainMapReduce || t == ChainRefine
}

func validSearchType(t string) bool {
	return t == SearchSimilarity || t == SearchMMR || t == SearchKeyword || t == SearchHybrid
}
