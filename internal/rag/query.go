package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/vidlens/internal/keyword"
	"github.com/hyperjump/vidlens/internal/models"
	"github.com/hyperjump/vidlens/internal/search"
	"github.com/hyperjump/vidlens/internal/storage"
	"github.com/hyperjump/vidlens/internal/vector"
	"github.com/hyperjump/vidlens/pkg/utils"
)

// Answer is the result of a query.
type Answer struct {
	// Text is the answer, followed by the sources block when sources were requested.
	Text    string               `json:"answer"`
	Sources []models.SourceChunk `json:"sources,omitempty"`
}

// QueryOptions modifies a query.
type QueryOptions struct {
	ReturnSources bool
}

// ParamUpdate changes the retrieval configuration. Nil fields are left unchanged.
type ParamUpdate struct {
	Temperature *float64 `json:"temperature,omitempty"`
	K           *int     `json:"k,omitempty"`
	ChainType   *string  `json:"chain_type,omitempty"`
	SearchType  *string  `json:"search_type,omitempty"`
}

var errEmptyQuestion = errors.New("question is empty")

// Query answers question from the session's transcript using the stored
// retrieval configuration.
func (s *Session) Query(ctx context.Context, question string, opts QueryOptions) (*Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return nil, notReady(OpQuery, nil)
	}
	if strings.TrimSpace(question) == "" {
		return nil, invalid(OpQuery, errEmptyQuestion)
	}
	return s.answerLocked(ctx, question, s.params, opts.ReturnSources)
}

// QueryWithParams answers with a one-off k and search type using the stuff chain.
// The stored configuration is not changed. k <= 0 means 5.
func (s *Session) QueryWithParams(ctx context.Context, question string, k int, searchType string) (*Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return nil, notReady(OpQuery, nil)
	}
	if strings.TrimSpace(question) == "" {
		return nil, invalid(OpQuery, errEmptyQuestion)
	}
	if k <= 0 {
		k = 5
	}
	if searchType == "" {
		searchType = SearchSimilarity
	}
	if !validSearchType(searchType) {
		return nil, invalid(OpQuery, fmt.Errorf("unknown search type %q", searchType))
	}
	params := s.params
	params.TopK = k
	params.SearchType = searchType
	params.ChainType = ChainStuff
	return s.answerLocked(ctx, question, params, false)
}

func (s *Session) answerLocked(ctx context.Context, question string, params models.RetrievalParams, withSources bool) (*Answer, error) {
	hits, err := s.retrieveLocked(ctx, question, params.TopK, params.SearchType)
	if err != nil {
		s.deps.Logger.Error("error querying video content", zap.Error(err))
		return nil, backend(OpQuery, err)
	}
	contexts := make([]string, len(hits))
	for i, h := range hits {
		contexts[i] = h.Content
	}
	runner := &chainRunner{llm: s.deps.LLM, temperature: params.Temperature, maxTokens: s.cfg.MaxTokens}
	text, err := runner.run(ctx, params.ChainType, question, contexts)
	if err != nil {
		s.deps.Logger.Error("error querying video content", zap.Error(err))
		return nil, backend(OpQuery, err)
	}
	ans := &Answer{Text: text, Sources: hits}
	if withSources {
		ans.Text += "\n\n**Sources:**\n" + FormatSources(hits)
	}
	return ans, nil
}

// FormatSources renders retrieved chunks as the sources block of an answer.
func FormatSources(sources []models.SourceChunk) string {
	if len(sources) == 0 {
		return "No source documents found."
	}
	parts := make([]string, len(sources))
	for i, src := range sources {
		parts[i] = fmt.Sprintf("Source %d (Chunk %d from '%s'):\n%s\n",
			i+1, src.ChunkIndex, src.VideoTitle, utils.Truncate(src.Content, previewLength))
	}
	return strings.Join(parts, "\n")
}

// Similar returns the k chunks nearest to query without generating an answer.
// k <= 0 uses the configured default.
func (s *Session) Similar(ctx context.Context, query string, k int) ([]models.SourceChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return nil, notReady(OpSimilar, nil)
	}
	if k <= 0 {
		k = s.cfg.SimilarK
	}
	if k <= 0 {
		k = 3
	}
	hits, err := s.retrieveLocked(ctx, query, k, SearchSimilarity)
	if err != nil {
		s.deps.Logger.Error("error getting similar chunks", zap.Error(err))
		return nil, backend(OpSimilar, err)
	}
	return hits, nil
}

// SimilarChunks renders Similar as text: one "Chunk {i} (Index: {idx})" block per hit.
func (s *Session) SimilarChunks(ctx context.Context, query string, k int) (string, error) {
	hits, err := s.Similar(ctx, query, k)
	if err != nil {
		return "", err
	}
	return FormatSimilar(hits), nil
}

// FormatSimilar renders similar-chunk hits.
func FormatSimilar(hits []models.SourceChunk) string {
	if len(hits) == 0 {
		return MsgNoSimilar
	}
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = fmt.Sprintf("Chunk %d (Index: %d):\n%s\n", i+1, h.ChunkIndex, h.Content)
	}
	return strings.Join(parts, "\n")
}

// UpdateParameters changes the retrieval configuration without re-embedding.
// Either every field in u is applied or none is.
func (s *Session) UpdateParameters(u ParamUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return notReady(OpUpdate, nil)
	}
	p := s.params
	if u.Temperature != nil {
		if *u.Temperature < 0 || *u.Temperature > 2 {
			return invalid(OpUpdate, fmt.Errorf("temperature must be in [0,2], got %g", *u.Temperature))
		}
		p.Temperature = *u.Temperature
	}
	if u.K != nil {
		if *u.K < 1 || *u.K > 50 {
			return invalid(OpUpdate, fmt.Errorf("k must be in [1,50], got %d", *u.K))
		}
		p.TopK = *u.K
	}
	if u.ChainType != nil {
		if !validChainType(*u.ChainType) {
			return invalid(OpUpdate, fmt.Errorf("unknown chain type %q", *u.ChainType))
		}
		p.ChainType = *u.ChainType
	}
	if u.SearchType != nil {
		t := *u.SearchType
		if !validSearchType(t) {
			return invalid(OpUpdate, fmt.Errorf("unknown search type %q", t))
		}
		if (t == SearchKeyword || t == SearchHybrid) && s.keywords == nil {
			return invalid(OpUpdate, fmt.Errorf("search type %q needs the keyword index, which is disabled", t))
		}
		p.SearchType = t
	}
	s.params = p
	s.deps.Logger.Info("updated retrieval parameters")
	return nil
}

// Stats reports the session's index. It never fails; internal errors are
// reported as StatusError with zero chunks.
func (s *Session) Stats() models.RAGStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady || s.store == nil {
		return models.RAGStats{Status: StatusNone, SessionID: s.id}
	}
	ctx, cancel := context.WithTimeout(context.Background(), teardownBudget)
	defer cancel()
	n, err := s.store.CountChunks(ctx, s.collection)
	if err != nil {
		s.deps.Logger.Error("error getting database stats", zap.Error(err))
		return models.RAGStats{Status: StatusError, SessionID: s.id}
	}
	usage, err := storage.DiskUsageBytes(s.ws.Dir())
	if err != nil {
		usage = 0
	}
	params := s.params
	return models.RAGStats{
		Status:            StatusActive,
		Chunks:            int(n),
		SessionID:         s.id,
		HasRetrievalChain: s.deps.LLM != nil,
		Parameters:        &params,
		DiskUsageBytes:    usage,
	}
}

// retrieveLocked returns up to k chunks for query, best first.
func (s *Session) retrieveLocked(ctx context.Context, query string, k int, searchType string) ([]models.SourceChunk, error) {
	if (searchType == SearchKeyword || searchType == SearchHybrid) && s.keywords == nil {
		searchType = SearchSimilarity
	}

	var ids []string
	scores := map[string]float64{}
	switch searchType {
	case SearchKeyword:
		res, err := s.keywords.Search(ctx, query, k, &keyword.SearchOptions{PhraseBoost: 1.5})
		if err != nil {
			return nil, err
		}
		norm := search.NormalizeKeywordScores(res)
		for _, r := range res {
			ids = append(ids, r.ID)
			scores[r.ID] = norm[r.ID]
		}
	case SearchHybrid:
		fused, err := s.hybridLocked(ctx, query, k)
		if err != nil {
			return nil, err
		}
		for _, f := range fused {
			ids = append(ids, f.ChunkID)
			scores[f.ChunkID] = f.Score
		}
	default:
		res, err := s.semanticLocked(ctx, query, k, searchType == SearchMMR)
		if err != nil {
			return nil, err
		}
		for _, r := range res {
			ids = append(ids, r.ID)
			scores[r.ID] = r.Score
		}
	}

	chunks, err := s.store.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	out := make([]models.SourceChunk, len(chunks))
	for i, c := range chunks {
		out[i] = models.SourceChunk{
			ChunkIndex: c.ChunkIndex,
			VideoTitle: c.VideoTitle,
			Content:    c.Content,
			Score:      scores[c.ID],
		}
	}
	return out, nil
}

func (s *Session) semanticLocked(ctx context.Context, query string, k int, mmr bool) ([]*vector.VectorResult, error) {
	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	qv = utils.Normalized(qv)
	if mmr {
		return s.vectors.SearchMMR(ctx, qv, k, k*mmrFetchFactor, mmrLambda)
	}
	return s.vectors.Search(ctx, qv, k)
}

// hybridLocked runs semantic and keyword retrieval concurrently and fuses the
// normalized scores with equal weight.
func (s *Session) hybridLocked(ctx context.Context, query string, k int) ([]*search.FusedResult, error) {
	fetch := k * mmrFetchFactor
	var (
		semantic []*vector.VectorResult
		keywords []*keyword.KeywordResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		semantic, err = s.semanticLocked(gctx, query, fetch, false)
		return err
	})
	g.Go(func() error {
		var err error
		keywords, err = s.keywords.Search(gctx, query, fetch, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return search.Fuse(
		search.NormalizeKeywordScores(keywords),
		search.NormalizeSemanticScores(semantic),
		hybridWeight, 1-hybridWeight, k,
	), nil
}
