package model

import (
	"strings"

	appErrors "github.com/moehefner/streb/internal/errors"
)

// Platform is a canonical social platform identifier.
type Platform string

const (
	PlatformTwitter     Platform = "twitter"
	PlatformLinkedIn    Platform = "linkedin"
	PlatformInstagram   Platform = "instagram"
	PlatformFacebook    Platform = "facebook"
	PlatformThreads     Platform = "threads"
	PlatformReddit      Platform = "reddit"
	PlatformProductHunt Platform = "producthunt"
	PlatformTikTok      Platform = "tiktok"
	PlatformYouTube     Platform = "youtube"
)

// PostPlatforms are the platforms that accept text/image posts.
var PostPlatforms = []Platform{
	PlatformTwitter,
	PlatformLinkedIn,
	PlatformInstagram,
	PlatformFacebook,
	PlatformThreads,
	PlatformReddit,
	PlatformProductHunt,
}

// VideoPlatforms are the platforms that accept short videos.
var VideoPlatforms = []Platform{
	PlatformTikTok,
	PlatformYouTube,
	PlatformInstagram,
}

// platformAliases is the only place where alternate spellings are mapped.
var platformAliases = map[string]Platform{
	"twitter":         PlatformTwitter,
	"x":               PlatformTwitter,
	"linkedin":        PlatformLinkedIn,
	"instagram":       PlatformInstagram,
	"instagram_reels": PlatformInstagram,
	"reels":           PlatformInstagram,
	"facebook":        PlatformFacebook,
	"threads":         PlatformThreads,
	"reddit":          PlatformReddit,
	"producthunt":     PlatformProductHunt,
	"product_hunt":    PlatformProductHunt,
	"tiktok":          PlatformTikTok,
	"youtube":         PlatformYouTube,
	"youtube_shorts":  PlatformYouTube,
	"shorts":          PlatformYouTube,
}

// ParsePlatform maps any known spelling of a platform to its canonical value.
func ParsePlatform(name string) (Platform, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if p, ok := platformAliases[key]; ok {
		return p, nil
	}
	return "", appErrors.NewInvalidPlatform(name)
}

// ParsePlatforms canonicalizes a list and drops duplicates, keeping order.
func ParsePlatforms(names []string) ([]Platform, error) {
	seen := make(map[Platform]bool, len(names))
	out := make([]Platform, 0, len(names))
	for _, n := range names {
		p, err := ParsePlatform(n)
		if err != nil {
			return nil, err
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}

// SupportsPosts reports whether p is a post platform.
func (p Platform) SupportsPosts() bool {
	return contains(PostPlatforms, p)
}

// SupportsVideos reports whether p is a video platform.
func (p Platform) SupportsVideos() bool {
	return contains(VideoPlatforms, p)
}

func contains(list []Platform, p Platform) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}
