package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/deskrank/internal/catalog"
	"github.com/IshaanNene/deskrank/internal/collector"
	"github.com/IshaanNene/deskrank/internal/score"
	"github.com/IshaanNene/deskrank/internal/storage"
)

// CollectedData is the raw engagement gathered for one item.
type CollectedData struct {
	ItemID          string                `json:"itemId"`
	ItemName        string                `json:"itemName"`
	Twitter         *collector.TweetStats `json:"twitter"`
	YouTube         *collector.VideoStats `json:"youtube"`
	Note            *collector.NoteMatch  `json:"note"`
	CalculatedScore int                   `json:"calculatedScore"`
	Timestamp       time.Time             `json:"timestamp"`
}

// Raw flattens the gathered numbers for scoring.
func (d CollectedData) Raw() score.Raw {
	var r score.Raw
	if d.Twitter != nil {
		r.Tweets, r.TweetLikes, r.Retweets = d.Twitter.TweetCount, d.Twitter.TotalLikes, d.Twitter.TotalRetweets
	}
	if d.YouTube != nil {
		r.Videos = d.YouTube.VideoCount
		r.VideoViews, r.VideoLikes, r.VideoComments = d.YouTube.TotalViews, d.YouTube.TotalLikes, d.YouTube.TotalComments
	}
	if d.Note != nil {
		r.NoteArticles, r.NoteLikes = d.Note.ArticleCount, d.Note.TotalLikes
	}
	return r
}

// CollectReport summarizes a collect run.
type CollectReport struct {
	RunID        string
	Data         []CollectedData
	Items        []catalog.Item
	Failed       int
	NoteArticles int
	SnapshotPath string
	Updated      bool
}

// Collect rescores every catalog item from fresh social engagement. With
// update set the catalog is rewritten; an item whose lookups fail keeps its
// previous values.
func (e *Engine) Collect(ctx context.Context, update bool) (*CollectReport, error) {
	stats, err := e.begin("collect")
	if err != nil {
		return nil, err
	}
	defer e.end(stats)

	cat, err := e.loadCatalog(false)
	if err != nil {
		return nil, err
	}
	report := &CollectReport{RunID: stats.RunID}

	articles := e.noteArticles(ctx)
	report.NoteArticles = len(articles)

	updated := make([]catalog.Item, 0, len(cat.Items))
	for i, item := range cat.Items {
		if i > 0 {
			if err := e.wait(ctx, e.cfg.Collect.ItemDelay); err != nil {
				return report, err
			}
		}

		data, err := e.collectItem(ctx, item, articles)
		e.metrics.ItemScored(err)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			e.logger.Error("collect failed, keeping item", "item", item.ID, "error", err)
			report.Failed++
			stats.ItemsFailed.Add(1)
			updated = append(updated, item)
			continue
		}

		social := data.Raw().Social(item.AmazonSocial(e.cfg.Collect.DefaultAmazon))
		item.Score = data.CalculatedScore
		item.SocialScore = &social
		report.Data = append(report.Data, *data)
		updated = append(updated, item)
		stats.ItemsScored.Add(1)
		e.logger.Info("item scored", "item", item.ID, "score", item.Score)
	}
	report.Items = updated

	sn := storage.Snapshot{Kind: storage.KindCollected, RunID: stats.RunID, Date: e.now(), Payload: report.Data}
	if report.Data == nil {
		sn.Payload = []CollectedData{}
	}
	if err := e.collectedSink.Write(ctx, sn); err != nil {
		return report, fmt.Errorf("write collected snapshot: %w", err)
	}
	report.SnapshotPath = storage.SnapshotPath(e.cfg.Paths.CollectedDir, sn.Kind, sn.Date)

	if e.history != nil {
		if err := e.history.Record(ctx, historyEntries(stats.RunID, report.Data, updated)); err != nil {
			e.logger.Error("score history not recorded", "error", err)
		}
	}

	if !update {
		return report, nil
	}
	cat.Items = updated
	if err := catalog.Save(e.cfg.Paths.Catalog, cat); err != nil {
		return report, fmt.Errorf("save catalog: %w", err)
	}
	report.Updated = true
	return report, nil
}

// noteArticles lists the articles of every configured note interest page.
// Failures leave the run without note data.
func (e *Engine) noteArticles(ctx context.Context) []collector.NoteArticle {
	var (
		out  []collector.NoteArticle
		seen = map[string]struct{}{}
	)
	for _, topic := range e.cfg.Sources.Note.Queries {
		articles, err := e.noteLister().Articles(ctx, topic)
		if err != nil {
			e.logger.Warn("note articles unavailable, continuing without", "topic", topic, "error", err)
			continue
		}
		for _, a := range articles {
			if _, ok := seen[a.URL]; ok {
				continue
			}
			seen[a.URL] = struct{}{}
			out = append(out, a)
		}
	}
	e.logger.Info("note articles fetched", "count", len(out))
	return out
}

// collectItem queries the tweet and video APIs concurrently and matches the
// note articles. A missing API client leaves its result nil.
func (e *Engine) collectItem(ctx context.Context, item catalog.Item, articles []collector.NoteArticle) (*CollectedData, error) {
	data := &CollectedData{ItemID: item.ID, ItemName: item.Name}

	g, gctx := errgroup.WithContext(ctx)
	if e.twitter != nil {
		g.Go(func() error {
			s, err := e.twitter.RecentStats(gctx, item.Name)
			if err != nil {
				return fmt.Errorf("twitter: %w", err)
			}
			data.Twitter = s
			return nil
		})
	}
	if e.youtube != nil {
		g.Go(func() error {
			s, err := collector.SearchVideoStats(gctx, e.youtube, item.Name, e.cfg.Sources.YouTube.MaxResults)
			if err != nil {
				return fmt.Errorf("youtube: %w", err)
			}
			data.YouTube = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data.Note = collector.MatchNoteArticles(e.keywords, item.Name, articles)
	data.CalculatedScore = score.Calculate(data.Raw().Factors())
	data.Timestamp = e.now().UTC()
	return data, nil
}

func historyEntries(runID string, data []CollectedData, items []catalog.Item) []storage.HistoryEntry {
	byID := make(map[string]catalog.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	out := make([]storage.HistoryEntry, 0, len(data))
	for _, d := range data {
		e := storage.HistoryEntry{RunID: runID, ItemID: d.ItemID, Score: d.CalculatedScore, RecordedAt: d.Timestamp}
		if it, ok := byID[d.ItemID]; ok && it.SocialScore != nil {
			e.Social = *it.SocialScore
		}
		out = append(out, e)
	}
	return out
}
