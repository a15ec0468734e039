package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/vidlens/internal/models"
	"github.com/hyperjump/vidlens/internal/videodb"
	"github.com/hyperjump/vidlens/pkg/utils"
)

// ErrEmptyQuery is returned for a blank search query.
var ErrEmptyQuery = errors.New("search query is empty")

// VideoSearcher is the part of the VideoDB client used for timestamp search.
type VideoSearcher interface {
	Search(ctx context.Context, videoID, query string, opts videodb.SearchOptions) (*videodb.SearchResult, error)
}

// Searcher finds the moments in a video where a topic is discussed.
type Searcher struct {
	client VideoSearcher
	logger *zap.Logger
}

// NewSearcher creates a Searcher. A nil logger discards output.
func NewSearcher(client VideoSearcher, logger *zap.Logger) *Searcher {
	return &Searcher{client: client, logger: utils.OrNop(logger)}
}

// Search runs semantic search over the video's spoken-word index and returns
// the matching shots ordered by start time, each labelled MM:SS or HH:MM:SS.
func (s *Searcher) Search(ctx context.Context, videoID, query string) (*models.TimestampSearch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	res, err := s.client.Search(ctx, videoID, query, videodb.SearchOptions{
		SearchType: videodb.SearchSemantic,
		IndexType:  videodb.IndexSpokenWord,
	})
	if err != nil {
		s.logger.Error("error searching video", zap.String("video_id", videoID), zap.Error(err))
		return nil, fmt.Errorf("search video %s: %w", videoID, err)
	}

	out := &models.TimestampSearch{VideoID: videoID, Query: query, Shots: []models.Shot{}, StreamURL: res.StreamURL}
	for _, shot := range res.Shots {
		out.Shots = append(out.Shots, models.Shot{
			Start:      shot.Start,
			End:        shot.End,
			Text:       strings.TrimSpace(shot.Text),
			Score:      shot.Score,
			StartLabel: utils.FormatTimestamp(shot.Start),
			EndLabel:   utils.FormatTimestamp(shot.End),
		})
	}
	sort.SliceStable(out.Shots, func(i, j int) bool { return out.Shots[i].Start < out.Shots[j].Start })
	s.logger.Debug("timestamp search", zap.String("video_id", videoID), zap.Int("shots", len(out.Shots)))
	return out, nil
}
