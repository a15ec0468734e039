package models

// Platform identifies a social network.
type Platform string

const (
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
)

// Platforms lists every supported platform in output order.
var Platforms = []Platform{PlatformLinkedIn, PlatformTwitter, PlatformFacebook, PlatformInstagram}

// SocialMediaPost is one generated post for a platform.
type SocialMediaPost struct {
	Platform       Platform `json:"platform"`
	Content        string   `json:"content"`
	Hashtags       []string `json:"hashtags"`
	CharacterCount int      `json:"character_count"`
	Error          string   `json:"error,omitempty"`
}
