package collector

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/IshaanNene/deskrank/internal/config"
	"github.com/IshaanNene/deskrank/internal/fetcher"
	"github.com/IshaanNene/deskrank/internal/parser"
	"github.com/IshaanNene/deskrank/internal/types"
)

const youtubeAPIBase = "https://www.googleapis.com/youtube/v3"

// Video is a YouTube video with the statistics the pipeline uses.
type Video struct {
	ID          string
	Title       string
	Description string
	Views       int64
	Likes       int64
	Comments    int64
}

// URL returns the watch page URL.
func (v Video) URL() string { return "https://www.youtube.com/watch?v=" + v.ID }

// VideoSearcher searches videos and returns them with statistics.
type VideoSearcher interface {
	SearchVideos(ctx context.Context, query string, maxResults int) ([]Video, error)
}

// YouTubeAPI is a minimal YouTube Data API v3 client.
type YouTubeAPI struct {
	fetcher fetcher.Fetcher
	key     string
	baseURL string
}

// NewYouTubeAPI creates a client. It returns nil when key is empty so callers
// can treat a missing key as "no searcher".
func NewYouTubeAPI(f fetcher.Fetcher, key string) *YouTubeAPI {
	if key == "" {
		return nil
	}
	return &YouTubeAPI{fetcher: f, key: key, baseURL: youtubeAPIBase}
}

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
	Error *youtubeError `json:"error"`
}

type youtubeVideosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
	Error *youtubeError `json:"error"`
}

type youtubeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SearchVideos runs a search and loads snippet and statistics of each hit.
// Search snippets truncate descriptions, so the videos endpoint is queried
// for the full text.
func (y *YouTubeAPI) SearchVideos(ctx context.Context, query string, maxResults int) ([]Video, error) {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("type", "video")
	q.Set("regionCode", "JP")
	q.Set("maxResults", strconv.Itoa(maxResults))
	q.Set("q", query)

	var sr youtubeSearchResponse
	if err := y.get(ctx, "/search?"+q.Encode(), &sr); err != nil {
		return nil, err
	}
	if sr.Error != nil {
		return nil, fmt.Errorf("youtube search: %s", sr.Error.Message)
	}

	ids := make([]string, 0, len(sr.Items))
	for _, it := range sr.Items {
		if it.ID.VideoID != "" {
			ids = append(ids, it.ID.VideoID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	v := url.Values{}
	v.Set("part", "snippet,statistics")
	v.Set("id", strings.Join(ids, ","))

	var vr youtubeVideosResponse
	if err := y.get(ctx, "/videos?"+v.Encode(), &vr); err != nil {
		return nil, err
	}
	if vr.Error != nil {
		return nil, fmt.Errorf("youtube videos: %s", vr.Error.Message)
	}

	videos := make([]Video, 0, len(vr.Items))
	for _, it := range vr.Items {
		videos = append(videos, Video{
			ID:          it.ID,
			Title:       it.Snippet.Title,
			Description: it.Snippet.Description,
			Views:       parseCount(it.Statistics.ViewCount),
			Likes:       parseCount(it.Statistics.LikeCount),
			Comments:    parseCount(it.Statistics.CommentCount),
		})
	}
	return videos, nil
}

// get sends the key as a header so it never appears in URLs that end up in
// errors and logs.
func (y *YouTubeAPI) get(ctx context.Context, path string, v any) error {
	req, err := types.NewRequest(y.baseURL + path)
	if err != nil {
		return err
	}
	req.Headers.Set("X-Goog-Api-Key", y.key)
	req.Headers.Set("Accept", "application/json")

	resp, err := fetcher.Do(ctx, y.fetcher, req)
	if err != nil {
		return err
	}
	return resp.JSON(v)
}

func parseCount(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

// shortLinkPattern matches Amazon short links, which hide the product code
// behind a redirect.
var shortLinkPattern = regexp.MustCompile(`https?://(?:amzn\.to|amzn\.asia)/[A-Za-z0-9/]+`)

// YouTube discovers products linked from desk tour video descriptions.
type YouTube struct {
	*searchCollector

	// maxShortLinks bounds the redirects followed per description.
	maxShortLinks int
}

// NewYouTube creates the YouTube collector. It fails with a credential error
// at collection time when deps.YouTube is nil.
func NewYouTube(cfg config.SourceConfig, deps Deps) *YouTube {
	y := &YouTube{maxShortLinks: 10}
	y.searchCollector = newSearchCollector(types.SourceYouTube, cfg, deps, y)
	return y
}

func (y *YouTube) ready() error {
	if y.deps.YouTube == nil {
		return &types.CredentialError{Source: types.SourceYouTube, Env: "YOUTUBE_API_KEY"}
	}
	return nil
}

func (y *YouTube) search(ctx context.Context, query string) ([]candidate, error) {
	videos, err := y.deps.YouTube.SearchVideos(ctx, query, y.cfg.MaxResults)
	if err != nil {
		y.deps.Metrics.PageFetched(types.SourceYouTube, err)
		return nil, err
	}
	y.deps.Metrics.PageFetched(types.SourceYouTube, nil)

	out := make([]candidate, 0, len(videos))
	for _, v := range videos {
		out = append(out, candidate{
			URL:        v.URL(),
			Title:      v.Title,
			Engagement: float64(v.Views),
			Text:       v.Title + "\n" + v.Description,
		})
	}
	return out, nil
}

// inspect scans the description, following Amazon short links to their
// product pages.
func (y *YouTube) inspect(ctx context.Context, c candidate) (page, error) {
	asins := parser.ExtractASINs(c.Text)
	seen := make(map[string]struct{}, len(asins))
	for _, a := range asins {
		seen[a] = struct{}{}
	}

	links := shortLinkPattern.FindAllString(c.Text, -1)
	if len(links) > y.maxShortLinks {
		links = links[:y.maxShortLinks]
	}
	for _, link := range links {
		resp, err := y.deps.fetchGet(ctx, types.SourceYouTube, link)
		if err != nil {
			y.logger.Debug("short link failed", "link", link, "error", err)
			continue
		}
		asin := parser.ASINFromURL(resp.FinalURL)
		if asin == "" {
			continue
		}
		if _, dup := seen[asin]; dup {
			continue
		}
		seen[asin] = struct{}{}
		asins = append(asins, asin)
	}
	return page{ASINs: asins}, nil
}
