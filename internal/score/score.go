// Package score turns raw engagement counts into the 0-100 catalog score.
//
// Six channels feed the score: Twitter mentions and engagement, YouTube views
// and engagement, and note article count and likes. Each channel saturates at
// a fixed cap, so a single viral channel cannot carry an item on its own.
package score

import "math"

// Factors holds one value per scoring channel. The same shape carries both
// raw counts and their normalized [0,1] form.
type Factors struct {
	TwitterMentions   float64 `json:"twitterMentions"`
	TwitterEngagement float64 `json:"twitterEngagement"`
	YouTubeViews      float64 `json:"youtubeViews"`
	YouTubeEngagement float64 `json:"youtubeEngagement"`
	NoteArticles      float64 `json:"noteArticles"`
	NoteLikes         float64 `json:"noteLikes"`
}

// Caps are the raw values treated as 100% of a channel's signal.
var Caps = Factors{
	TwitterMentions:   500,
	TwitterEngagement: 2500,
	YouTubeViews:      10000,
	YouTubeEngagement: 1000,
	NoteArticles:      10,
	NoteLikes:         500,
}

// Weights sum to 1.0.
var Weights = Factors{
	TwitterMentions:   0.25,
	TwitterEngagement: 0.15,
	YouTubeViews:      0.25,
	YouTubeEngagement: 0.15,
	NoteArticles:      0.10,
	NoteLikes:         0.10,
}

// Normalize divides each channel by its cap and clips the result to [0,1].
func Normalize(f Factors) Factors {
	return Factors{
		TwitterMentions:   saturate(f.TwitterMentions, Caps.TwitterMentions),
		TwitterEngagement: saturate(f.TwitterEngagement, Caps.TwitterEngagement),
		YouTubeViews:      saturate(f.YouTubeViews, Caps.YouTubeViews),
		YouTubeEngagement: saturate(f.YouTubeEngagement, Caps.YouTubeEngagement),
		NoteArticles:      saturate(f.NoteArticles, Caps.NoteArticles),
		NoteLikes:         saturate(f.NoteLikes, Caps.NoteLikes),
	}
}

// Calculate returns the weighted, normalized score as an integer in [0,100].
func Calculate(f Factors) int {
	n := Normalize(f)
	raw := n.TwitterMentions*Weights.TwitterMentions +
		n.TwitterEngagement*Weights.TwitterEngagement +
		n.YouTubeViews*Weights.YouTubeViews +
		n.YouTubeEngagement*Weights.YouTubeEngagement +
		n.NoteArticles*Weights.NoteArticles +
		n.NoteLikes*Weights.NoteLikes

	s := int(math.Round(raw * 100))
	return clamp(s, 0, 100)
}

func saturate(v, limit float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return math.Min(v/limit, 1)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
