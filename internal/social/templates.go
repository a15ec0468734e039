package social

import (
	"strconv"
	"strings"

	"github.com/hyperjump/vidlens/internal/models"
)

// Template is a platform's prompt and limits.
type Template struct {
	Platform    models.Platform
	MaxLength   int
	Hashtags    int
	Tone        string
	instruction string
}

var templates = map[models.Platform]Template{
	models.PlatformLinkedIn: {
		Platform: models.PlatformLinkedIn, MaxLength: 3000, Hashtags: 5, Tone: "professional",
		instruction: `Create a professional LinkedIn post based on this video content.

Video Summary: {summary}
Key Topics: {topics}
Video URL: {video_url}

Requirements:
- Professional tone
- Engaging opening hook
- Key insights from the video
- Call to action
- Relevant hashtags (3-5)
- Maximum {max_length} characters

Make it valuable for professional network.`,
	},
	models.PlatformTwitter: {
		Platform: models.PlatformTwitter, MaxLength: 280, Hashtags: 3, Tone: "casual",
		instruction: `Create a Twitter thread (2-3 tweets) based on this video content.

Video Summary: {summary}
Key Topics: {topics}
Video URL: {video_url}

Requirements:
- Casual, engaging tone
- Hook in first tweet
- Key insights in thread
- Relevant hashtags (2-3 per tweet)
- Each tweet max {max_length} characters

Format as: Tweet 1/3: [content]
Tweet 2/3: [content] etc.`,
	},
	models.PlatformInstagram: {
		Platform: models.PlatformInstagram, MaxLength: 2200, Hashtags: 8, Tone: "visual",
		instruction: `Create an Instagram post based on this video content.

Video Summary: {summary}
Key Topics: {topics}
Video URL: {video_url}

Requirements:
- Engaging, visual storytelling tone
- Compelling caption with emojis
- Key insights from video
- Story-like format
- Relevant hashtags (5-10)
- Maximum {max_length} characters

Make it visually appealing and engaging.`,
	},
	models.PlatformFacebook: {
		Platform: models.PlatformFacebook, MaxLength: 63206, Hashtags: 4, Tone: "conversational",
		instruction: `Create a Facebook post based on this video content.

Video Summary: {summary}
Key Topics: {topics}
Video URL: {video_url}

Requirements:
- Friendly, conversational tone
- Engaging story format
- Key insights and takeaways
- Questions to encourage engagement
- Maximum {max_length} characters

Make it shareable and discussion-worthy.`,
	},
}

// TemplateFor returns the template for platform. Unknown platforms get LinkedIn's.
func TemplateFor(platform models.Platform) Template {
	if t, ok := templates[models.Platform(strings.ToLower(string(platform)))]; ok {
		return t
	}
	return templates[models.PlatformLinkedIn]
}

// Render fills the template's placeholders.
func (t Template) Render(summary string, topics []string, videoURL string) string {
	return strings.NewReplacer(
		"{summary}", summary,
		"{topics}", strings.Join(topics, ", "),
		"{video_url}", videoURL,
		"{max_length}", strconv.Itoa(t.MaxLength),
	).Replace(t.instruction)
}
