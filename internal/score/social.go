package score

import "math"

// SocialScore is the per-platform 0-100 breakdown stored on catalog items.
type SocialScore struct {
	Twitter int `json:"twitter"`
	YouTube int `json:"youtube"`
	Amazon  int `json:"amazon"`
	Note    int `json:"note"`
}

// FactorsFromSocialScore estimates raw factors from a stored breakdown by
// scaling each platform score back onto the channel caps. Both channels of a
// platform receive the same fraction. The result is an approximation: the
// breakdown formulas are not invertible.
func FactorsFromSocialScore(s SocialScore) Factors {
	tw := fraction(s.Twitter)
	yt := fraction(s.YouTube)
	nt := fraction(s.Note)
	return Factors{
		TwitterMentions:   tw * Caps.TwitterMentions,
		TwitterEngagement: tw * Caps.TwitterEngagement,
		YouTubeViews:      yt * Caps.YouTubeViews,
		YouTubeEngagement: yt * Caps.YouTubeEngagement,
		NoteArticles:      nt * Caps.NoteArticles,
		NoteLikes:         nt * Caps.NoteLikes,
	}
}

func fraction(v int) float64 {
	return float64(clamp(v, 0, 100)) / 100
}

// Raw is the engagement gathered for one catalog item during a collect run.
type Raw struct {
	Tweets        int   `json:"tweets"`
	TweetLikes    int   `json:"tweetLikes"`
	Retweets      int   `json:"retweets"`
	Videos        int   `json:"videos"`
	VideoViews    int64 `json:"videoViews"`
	VideoLikes    int64 `json:"videoLikes"`
	VideoComments int64 `json:"videoComments"`
	NoteArticles  int   `json:"noteArticles"`
	NoteLikes     int   `json:"noteLikes"`
}

// Factors maps collected counts onto the scoring channels. Retweets count
// double and comments triple toward engagement.
func (r Raw) Factors() Factors {
	return Factors{
		TwitterMentions:   float64(r.Tweets),
		TwitterEngagement: float64(r.TweetLikes + 2*r.Retweets),
		YouTubeViews:      float64(r.VideoViews),
		YouTubeEngagement: float64(r.VideoLikes + 3*r.VideoComments),
		NoteArticles:      float64(r.NoteArticles),
		NoteLikes:         float64(r.NoteLikes),
	}
}

// Social derives the per-platform breakdown. amazon is carried over from the
// existing item since no collector measures it.
func (r Raw) Social(amazon int) SocialScore {
	return SocialScore{
		Twitter: platform(float64(r.Tweets) + float64(r.TweetLikes)/10),
		YouTube: platform(float64(r.Videos)*10 + float64(r.VideoViews)/1000),
		Amazon:  clamp(amazon, 0, 100),
		Note:    platform(float64(r.NoteArticles)*10 + float64(r.NoteLikes)/5),
	}
}

func platform(v float64) int {
	return clamp(int(math.Round(v/10)), 0, 100)
}
