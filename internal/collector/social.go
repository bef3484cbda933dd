package collector

import (
	"context"
	"net/url"
	"strconv"

	"github.com/IshaanNene/deskrank/internal/fetcher"
	"github.com/IshaanNene/deskrank/internal/parser"
	"github.com/IshaanNene/deskrank/internal/types"
)

const twitterAPIBase = "https://api.twitter.com/2"

// TweetStats summarizes recent tweets mentioning a product.
type TweetStats struct {
	TweetCount    int `json:"tweetCount"`
	TotalLikes    int `json:"totalLikes"`
	TotalRetweets int `json:"totalRetweets"`
}

// TweetSearcher searches recent tweets.
type TweetSearcher interface {
	RecentStats(ctx context.Context, query string) (*TweetStats, error)
}

// TwitterAPI is a minimal client for the v2 recent search endpoint.
type TwitterAPI struct {
	fetcher    fetcher.Fetcher
	token      string
	baseURL    string
	maxResults int
}

// NewTwitterAPI creates a client. It returns nil when token is empty.
func NewTwitterAPI(f fetcher.Fetcher, token string, maxResults int) *TwitterAPI {
	if token == "" {
		return nil
	}
	// the endpoint accepts 10 to 100
	maxResults = min(max(maxResults, 10), 100)
	return &TwitterAPI{fetcher: f, token: token, baseURL: twitterAPIBase, maxResults: maxResults}
}

type twitterSearchResponse struct {
	Data []struct {
		ID            string `json:"id"`
		PublicMetrics struct {
			LikeCount    int `json:"like_count"`
			RetweetCount int `json:"retweet_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

// RecentStats counts tweets from the last week matching query, with their
// likes and retweets. Retweets themselves are excluded.
func (t *TwitterAPI) RecentStats(ctx context.Context, query string) (*TweetStats, error) {
	q := url.Values{}
	q.Set("query", `"`+query+`" -is:retweet`)
	q.Set("max_results", strconv.Itoa(t.maxResults))
	q.Set("tweet.fields", "public_metrics")

	req, err := types.NewRequest(t.baseURL + "/tweets/search/recent?" + q.Encode())
	if err != nil {
		return nil, err
	}
	req.Headers.Set("Authorization", "Bearer "+t.token)
	req.Headers.Set("Accept", "application/json")

	resp, err := fetcher.Do(ctx, t.fetcher, req)
	if err != nil {
		return nil, err
	}
	var sr twitterSearchResponse
	if err := resp.JSON(&sr); err != nil {
		return nil, err
	}

	stats := &TweetStats{TweetCount: len(sr.Data)}
	for _, tw := range sr.Data {
		stats.TotalLikes += tw.PublicMetrics.LikeCount
		stats.TotalRetweets += tw.PublicMetrics.RetweetCount
	}
	return stats, nil
}

// VideoStats summarizes videos mentioning a product.
type VideoStats struct {
	VideoCount    int   `json:"videoCount"`
	TotalViews    int64 `json:"totalViews"`
	TotalLikes    int64 `json:"totalLikes"`
	TotalComments int64 `json:"totalComments"`
}

// SearchVideoStats searches videos for query and sums their statistics.
func SearchVideoStats(ctx context.Context, s VideoSearcher, query string, maxResults int) (*VideoStats, error) {
	videos, err := s.SearchVideos(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	stats := &VideoStats{VideoCount: len(videos)}
	for _, v := range videos {
		stats.TotalViews += v.Views
		stats.TotalLikes += v.Likes
		stats.TotalComments += v.Comments
	}
	return stats, nil
}

// NoteMatch is the set of note articles whose title mentions a product.
type NoteMatch struct {
	ArticleCount int           `json:"articleCount"`
	TotalLikes   int           `json:"totalLikes"`
	Articles     []NoteArticle `json:"articles"`
}

// MatchNoteArticles selects the articles whose title contains one of the
// product's keywords.
func MatchNoteArticles(k *parser.KeywordExtractor, productName string, articles []NoteArticle) *NoteMatch {
	keywords := k.Keywords(productName)
	m := &NoteMatch{Articles: []NoteArticle{}}
	for _, a := range articles {
		if !parser.MatchTitle(a.Title, keywords) {
			continue
		}
		m.ArticleCount++
		m.TotalLikes += a.Likes
		m.Articles = append(m.Articles, a)
	}
	return m
}
