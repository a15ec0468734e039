package analysis

import "github.com/hyperjump/vidlens/internal/llm"

const structuredAnalysisTemplate = `Analyze the following video transcript and provide comprehensive insights.

Title: %s
Description: %s
Transcript: %s

Provide an executive summary of 2-3 sentences, the 5-7 main topics discussed,
5-8 notable quotes, the overall sentiment (positive, negative or neutral) and
the target audience.`

const textAnalysisTemplate = `Analyze the following video content and provide a comprehensive summary.

Title: %s
Description: %s
Content: %s

Please provide:
1. A concise summary (2-3 sentences)
2. Key topics discussed (3-5 topics)
3. Important themes or points (3-5 points)

Format your response as:
SUMMARY: [your summary here]
TOPICS: [topic1, topic2, topic3, ...]
QUOTES: [point1 | point2 | point3 | ...]`

const summaryTemplate = `Summarize the following video in 3-5 sentences. Focus on the main message and the most important points.

Title: %s

Transcript:
%s

Summary:`

const topicsTemplate = `List the main topics discussed in the following transcript as a single comma-separated line, at most 7 topics, no numbering.

Transcript:
%s

Topics:`

var analysisSchema = &llm.Schema{
	Type: llm.TypeObject,
	Properties: map[string]*llm.Schema{
		"summary":         {Type: llm.TypeString},
		"topics":          {Type: llm.TypeArray, Items: &llm.Schema{Type: llm.TypeString}},
		"key_quotes":      {Type: llm.TypeArray, Items: &llm.Schema{Type: llm.TypeString}},
		"sentiment":       {Type: llm.TypeString, Enum: []string{"positive", "negative", "neutral"}},
		"target_audience": {Type: llm.TypeString},
	},
	Required: []string{"summary", "topics"},
}
