package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/echolabs/echofeed/internal/cache"
	"github.com/echolabs/echofeed/internal/ranking"
	"github.com/echolabs/echofeed/internal/store"
)

// Result kinds.
const (
	KindAll   = "all"
	KindPosts = "posts"
	KindUsers = "users"
)

// ValidKind reports whether kind is a requestable result kind.
func ValidKind(kind string) bool {
	switch kind {
	case KindAll, KindPosts, KindUsers:
		return true
	}
	return false
}

// Limits and candidate bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 40
	candidateLimit  = 500

	// minPrimaryResults triggers the one-shot threshold relaxation.
	minPrimaryResults = 5
)

// Permissive candidate filter thresholds: a candidate survives when any one
// clears. The relaxed pair applies once when results run short.
const (
	relevanceThreshold        = 0.2
	rankThreshold             = 0.1
	relaxedRelevanceThreshold = 0.1
	relaxedRankThreshold      = 0.05
)

// ErrEmptyQuery rejects blank searches before any computation.
var ErrEmptyQuery = errors.New("search query is empty")

// Request describes one search.
type Request struct {
	Query string
	// Kind is all, posts or users.
	Kind string
	// ViewerID is empty for anonymous searches.
	ViewerID string
	// Page is 1-based.
	Page int
	// PageSize is capped at MaxPageSize.
	PageSize int
	// Debug attaches per-signal breakdowns to each result.
	Debug bool
	// Refresh bypasses the result cache.
	Refresh bool
	// Simple skips the primary pipeline and runs the fallback matcher.
	Simple bool
}

// PostResult is a scored post.
type PostResult struct {
	Post  *store.Post        `json:"post"`
	Score float64            `json:"score"`
	Debug map[string]float64 `json:"_debug,omitempty"`
}

// UserResult is a scored user.
type UserResult struct {
	User     *store.User        `json:"user"`
	Score    float64            `json:"score"`
	Followed bool               `json:"followed"`
	Debug    map[string]float64 `json:"_debug,omitempty"`
}

// Response is a paginated search result set.
type Response struct {
	Posts      []PostResult `json:"posts,omitempty"`
	Users      []UserResult `json:"users,omitempty"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPosts int          `json:"total_posts"`
	TotalUsers int          `json:"total_users"`
	HasMore    bool         `json:"has_more"`
	// Strategy names the pipeline that produced the results.
	Strategy string `json:"strategy,omitempty"`
}

// resultSet is the unpaginated outcome of one strategy, and the cached value.
type resultSet struct {
	Posts []PostResult `json:"posts,omitempty"`
	Users []UserResult `json:"users,omitempty"`
}

func (rs resultSet) empty() bool {
	return len(rs.Posts) == 0 && len(rs.Users) == 0
}

// Source is the slice of the interaction store the ranker reads.
// store.InteractionStore satisfies it.
type Source interface {
	ListPosts(ctx context.Context, f store.PostFilter) ([]*store.Post, error)
	ListUsers(ctx context.Context, excludeIDs []string, limit int) ([]*store.User, error)
	CountLikes(ctx context.Context, postID string, since time.Time) (int, error)
	CountComments(ctx context.Context, postID string, since time.Time) (int, error)
	CountViews(ctx context.Context, postID string, since time.Time) (int, error)
	UserActivity(ctx context.Context, userID string) (store.UserActivity, error)
	Following(ctx context.Context, userID string) ([]string, error)
}

// RankerConfig configures a Ranker. Cache, QueryLog and Metrics are optional.
type RankerConfig struct {
	Source   Source
	Cache    cache.Cache
	QueryLog QueryLog
	Budget   ranking.Budget
	Logger   *slog.Logger
	Metrics  *Metrics
	// CacheTTL defaults to cache.DefaultSearchTTL.
	CacheTTL time.Duration
}

// Ranker runs the search pipeline.
type Ranker struct {
	source   Source
	cache    cache.Cache
	querylog QueryLog
	analyzer *Analyzer
	budget   ranking.Budget
	logger   *slog.Logger
	metrics  *Metrics
	cacheTTL time.Duration
	now      func() time.Time
}

// NewRanker creates a search ranker.
func NewRanker(cfg RankerConfig) *Ranker {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultSearchTTL
	}
	return &Ranker{
		source:   cfg.Source,
		cache:    cfg.Cache,
		querylog: cfg.QueryLog,
		analyzer: NewAnalyzer(),
		budget:   cfg.Budget,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		cacheTTL: cfg.CacheTTL,
		now:      time.Now,
	}
}

// Search runs the strategy chain for a request: cache, primary pipeline,
// simple fallback. An empty result set is not an error.
func (r *Ranker) Search(ctx context.Context, req Request) (*Response, error) {
	req = normalizeSearchRequest(req)
	terms := r.analyzer.Analyze(req.Query)
	if terms.Normalized == "" {
		return nil, ErrEmptyQuery
	}

	ctx, cancel := r.budget.Apply(ctx)
	defer cancel()

	started := r.now()
	r.logQuery(ctx, terms, req)

	key := cache.SearchKey(terms.Normalized, req.Kind, req.ViewerID)
	if r.cache != nil && !req.Refresh {
		var cached resultSet
		found, err := r.cache.Get(ctx, key, &cached)
		if err != nil {
			r.logger.Warn("search cache read failed, recomputing", "error", err)
		}
		if r.metrics != nil {
			r.metrics.IncCacheLookup(found)
		}
		if found {
			return r.respond(cached, req, "cache", started), nil
		}
	}

	results, strategy, err := r.runStrategies(ctx, terms, req)
	if err != nil {
		return nil, err
	}

	if r.cache != nil && !results.empty() {
		if err := r.cache.Set(ctx, key, results, r.cacheTTL); err != nil {
			r.logger.Warn("search cache write failed, skipping", "error", err)
		}
	}
	return r.respond(results, req, strategy, started), nil
}

// runStrategies tries the primary pipeline and falls back to the simple
// matcher on failure or an empty result set.
func (r *Ranker) runStrategies(ctx context.Context, terms QueryTerms, req Request) (resultSet, string, error) {
	if !req.Simple {
		results, err := r.primaryResults(ctx, terms, req)
		if err == nil && !results.empty() {
			return results, "primary", nil
		}
		if err != nil {
			r.logger.Warn("primary search pipeline failed, falling back",
				"query", terms.Normalized,
				"error", err)
		}
	}

	results, err := r.simpleResults(ctx, terms, req)
	if err != nil {
		return resultSet{}, "", fmt.Errorf("search fallback failed: %w", err)
	}
	return results, "simple", nil
}

func (r *Ranker) respond(results resultSet, req Request, strategy string, started time.Time) *Response {
	resp := &Response{
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPosts: len(results.Posts),
		TotalUsers: len(results.Users),
		Strategy:   strategy,
	}

	offset := (req.Page - 1) * req.PageSize
	resp.Posts = pagePosts(results.Posts, offset, req.PageSize)
	resp.Users = pageUsers(results.Users, offset, req.PageSize)
	resp.HasMore = resp.TotalPosts > offset+req.PageSize || resp.TotalUsers > offset+req.PageSize

	if r.metrics != nil {
		r.metrics.ObserveSearch(req.Kind, strategy, r.now().Sub(started).Seconds())
	}
	return resp
}

func pagePosts(results []PostResult, offset, limit int) []PostResult {
	if offset >= len(results) {
		return nil
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}

func pageUsers(results []UserResult, offset, limit int) []UserResult {
	if offset >= len(results) {
		return nil
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}

func normalizeSearchRequest(req Request) Request {
	if req.Kind == "" {
		req.Kind = KindAll
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = DefaultPageSize
	}
	if req.PageSize > MaxPageSize {
		req.PageSize = MaxPageSize
	}
	return req
}

// logQuery appends to the query log. Best effort.
func (r *Ranker) logQuery(ctx context.Context, terms QueryTerms, req Request) {
	if r.querylog == nil {
		return
	}
	entry := QueryLogEntry{Query: terms.Normalized, UserID: req.ViewerID, CreatedAt: r.now()}
	if err := r.querylog.Append(ctx, entry); err != nil {
		r.logger.Warn("failed to append search query log", "error", err)
	}
}

// primaryResults runs the composite-relevance pipeline for the requested
// kinds.
func (r *Ranker) primaryResults(ctx context.Context, terms QueryTerms, req Request) (resultSet, error) {
	var results resultSet
	var err error

	if req.Kind == KindAll || req.Kind == KindPosts {
		results.Posts, err = r.scorePosts(ctx, terms, req)
		if err != nil {
			return resultSet{}, err
		}
	}
	if req.Kind == KindAll || req.Kind == KindUsers {
		results.Users, err = r.scoreUsers(ctx, terms, req)
		if err != nil {
			return resultSet{}, err
		}
	}
	return results, nil
}

type scoredPostCandidate struct {
	post  *store.Post
	sig   signal
	score float64
	// recency and popularity are retained for debug output.
	recency    float64
	popularity float64
}

// scorePosts scores post candidates and applies the permissive filter.
// Relevance is multiplied by a recency tier and a popularity term is added.
func (r *Ranker) scorePosts(ctx context.Context, terms QueryTerms, req Request) ([]PostResult, error) {
	filter := store.PostFilter{Type: SniffType(terms), Limit: candidateLimit}
	posts, err := r.source.ListPosts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list post candidates: %w", err)
	}

	candidates := make([]scoredPostCandidate, 0, len(posts))
	for _, p := range posts {
		candidates = append(candidates, scoredPostCandidate{post: p, sig: postSignal(terms, p)})
	}

	kept := filterPosts(candidates, relevanceThreshold, rankThreshold)
	if len(kept) < minPrimaryResults {
		kept = filterPosts(candidates, relaxedRelevanceThreshold, relaxedRankThreshold)
	}

	now := r.now()
	for i := range kept {
		kept[i].recency = ranking.TierScore(now.Sub(kept[i].post.CreatedAt), ranking.SearchRecencyTiers(), ranking.SearchRecencyFallback)
		kept[i].popularity = r.popularity(ctx, kept[i].post.ID)
		kept[i].score = kept[i].sig.relevance*kept[i].recency + kept[i].popularity
	}

	// Exact primary-field matches outrank everything regardless of age
	// and popularity.
	sort.Slice(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.sig.exact != b.sig.exact {
			return a.sig.exact
		}
		if a.score != b.score {
			return a.score > b.score
		}
		return a.post.CreatedAt.After(b.post.CreatedAt)
	})

	results := make([]PostResult, 0, len(kept))
	for _, c := range kept {
		pr := PostResult{Post: c.post, Score: c.score}
		if req.Debug {
			pr.Debug = map[string]float64{
				"relevance":  c.sig.relevance,
				"rank":       c.sig.rank,
				"recency":    c.recency,
				"popularity": c.popularity,
			}
		}
		results = append(results, pr)
	}
	return results, nil
}

func filterPosts(candidates []scoredPostCandidate, minRelevance, minRank float64) []scoredPostCandidate {
	var kept []scoredPostCandidate
	for _, c := range candidates {
		if c.sig.relevance > minRelevance || c.sig.rank > minRank || c.sig.substring {
			kept = append(kept, c)
		}
	}
	return kept
}

// popularity is 0.005*views + 0.01*likes + 0.02*comments. Count failures
// degrade the term to zero rather than failing the search.
func (r *Ranker) popularity(ctx context.Context, postID string) float64 {
	views, err := r.source.CountViews(ctx, postID, time.Time{})
	if err != nil {
		return 0
	}
	likes, err := r.source.CountLikes(ctx, postID, time.Time{})
	if err != nil {
		return 0
	}
	comments, err := r.source.CountComments(ctx, postID, time.Time{})
	if err != nil {
		return 0
	}
	return viewPopularityWeight*float64(views) +
		likePopularityWeight*float64(likes) +
		commentPopularityWeight*float64(comments)
}

type scoredUserCandidate struct {
	user     *store.User
	sig      signal
	followed bool
	activity store.UserActivity
}

// scoreUsers scores user candidates. Users the viewer follows rank first,
// then relevance, follower count and activity break ties.
func (r *Ranker) scoreUsers(ctx context.Context, terms QueryTerms, req Request) ([]UserResult, error) {
	users, err := r.source.ListUsers(ctx, nil, candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list user candidates: %w", err)
	}

	followed := make(map[string]bool)
	if req.ViewerID != "" {
		ids, err := r.source.Following(ctx, req.ViewerID)
		if err != nil {
			r.logger.Warn("failed to load following for search, skipping followed-first ordering",
				"viewer_id", req.ViewerID,
				"error", err)
		}
		for _, id := range ids {
			followed[id] = true
		}
	}

	var kept []scoredUserCandidate
	var relaxed []scoredUserCandidate
	for _, u := range users {
		sig := userSignal(terms, u)
		c := scoredUserCandidate{user: u, sig: sig, followed: followed[u.ID]}
		if sig.relevance > relevanceThreshold || sig.rank > rankThreshold || sig.substring {
			kept = append(kept, c)
		} else if sig.relevance > relaxedRelevanceThreshold || sig.rank > relaxedRankThreshold {
			relaxed = append(relaxed, c)
		}
	}
	if len(kept) < minPrimaryResults {
		kept = append(kept, relaxed...)
	}

	for i := range kept {
		// Activity is a tie-breaker; a failed read just zeroes it.
		activity, err := r.source.UserActivity(ctx, kept[i].user.ID)
		if err == nil {
			kept[i].activity = activity
		}
	}

	sort.Slice(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.followed != b.followed {
			return a.followed
		}
		if a.sig.exact != b.sig.exact {
			return a.sig.exact
		}
		if a.sig.relevance != b.sig.relevance {
			return a.sig.relevance > b.sig.relevance
		}
		if a.activity.Followers != b.activity.Followers {
			return a.activity.Followers > b.activity.Followers
		}
		aActivity := a.activity.Posts + a.activity.Comments
		bActivity := b.activity.Posts + b.activity.Comments
		if aActivity != bActivity {
			return aActivity > bActivity
		}
		return a.user.Username < b.user.Username
	})

	results := make([]UserResult, 0, len(kept))
	for _, c := range kept {
		ur := UserResult{User: c.user, Score: c.sig.relevance, Followed: c.followed}
		if req.Debug {
			ur.Debug = map[string]float64{
				"relevance": c.sig.relevance,
				"rank":      c.sig.rank,
				"followers": float64(c.activity.Followers),
			}
		}
		results = append(results, ur)
	}
	return results, nil
}
