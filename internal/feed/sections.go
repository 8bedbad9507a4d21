package feed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/echolabs/echofeed/internal/affinity"
	"github.com/echolabs/echofeed/internal/ranking"
	"github.com/echolabs/echofeed/internal/store"
)

// Section scoring constants.
const (
	commentBaseWeight      = 2.0
	interactionBoost       = 2.0
	defaultTagMatch        = 1.0
	defaultTypeRatio       = 0.5
	interestAuthorLimit    = 50
	interestBoost          = 10.0
	defaultInterestWeight  = 0.1
	recommendedGraphMinLen = 1
)

func (a *Assembler) scoreSection(ctx context.Context, name string, req Request) ([]ScoredPost, error) {
	switch name {
	case SectionFollowing:
		return a.scoreFollowing(ctx, req)
	case SectionRecommended:
		return a.scoreRecommended(ctx, req)
	case SectionTrending:
		return a.scoreTrending(ctx, req)
	case SectionDiscover:
		return a.scoreDiscover(ctx, req)
	default:
		return nil, fmt.Errorf("unknown feed section: %s", name)
	}
}

// scoreFollowing ranks posts by followed authors:
// 0.3*base + 0.4*recency + 0.2*interaction + 0.1*personalization.
func (a *Assembler) scoreFollowing(ctx context.Context, req Request) ([]ScoredPost, error) {
	following, err := a.posts.Following(ctx, req.ViewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list following: %w", err)
	}
	if len(following) == 0 {
		return nil, nil
	}

	posts, err := a.posts.ListPosts(ctx, store.PostFilter{AuthorIDs: following, Limit: candidateLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to list following posts: %w", err)
	}

	pref := a.loadPreference(ctx, req)
	now := time.Now()

	scored := make([]ScoredPost, 0, len(posts))
	for _, p := range posts {
		base, err := a.engagementBase(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		recency := ranking.TierScore(now.Sub(p.CreatedAt), ranking.FollowingRecencyTiers(), ranking.FollowingRecencyFallback)
		interaction := interactionBoost * a.trendingScore(ctx, p.ID)
		personalization := personalizationScore(p, pref)

		params := ranking.SectionParams{
			Base:            base,
			Recency:         recency,
			Interaction:     interaction,
			Personalization: personalization,
		}
		sp := ScoredPost{Post: p, Score: ranking.CompositeScoreFollowing(params, a.weights)}
		if req.Debug {
			sp.Debug = map[string]float64{
				"base":            base,
				"recency":         recency,
				"interaction":     interaction,
				"personalization": personalization,
			}
		}
		scored = append(scored, sp)
	}

	sortScored(scored)
	return scored, nil
}

// scoreRecommended ranks posts by the viewer's top interest-graph authors:
// 0.2*base + 0.2*recency + 0.5*interest + 0.1*trending. An empty graph
// degrades to plain trending order excluding the viewer's own posts.
func (a *Assembler) scoreRecommended(ctx context.Context, req Request) ([]ScoredPost, error) {
	authorWeights := a.interestAuthors(ctx, req)
	if len(authorWeights.order) < recommendedGraphMinLen {
		return a.trendingExcludingViewer(ctx, req)
	}

	posts, err := a.posts.ListPosts(ctx, store.PostFilter{AuthorIDs: authorWeights.order, Limit: candidateLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to list recommended posts: %w", err)
	}

	now := time.Now()
	scored := make([]ScoredPost, 0, len(posts))
	for _, p := range posts {
		base, err := a.engagementBase(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		recency := ranking.TierScore(now.Sub(p.CreatedAt), ranking.RecommendedRecencyTiers(), ranking.RecommendedRecencyFallback)
		interest := authorWeights.score(p.AuthorID)
		trendScore := a.trendingScore(ctx, p.ID)

		params := ranking.SectionParams{
			Base:     base,
			Recency:  recency,
			Interest: interest,
			Trending: trendScore,
		}
		sp := ScoredPost{Post: p, Score: ranking.CompositeScoreRecommended(params, a.weights)}
		if req.Debug {
			sp.Debug = map[string]float64{
				"base":     base,
				"recency":  recency,
				"interest": interest,
				"trending": trendScore,
			}
		}
		scored = append(scored, sp)
	}

	sortScored(scored)
	return scored, nil
}

// scoreTrending lists posts with a positive trending score, ordered by
// score descending then created_at descending.
func (a *Assembler) scoreTrending(ctx context.Context, req Request) ([]ScoredPost, error) {
	top, err := a.scores.TopScores(ctx, candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load trending scores: %w", err)
	}

	scored := make([]ScoredPost, 0, len(top))
	for _, ts := range top {
		post, err := a.posts.GetPost(ctx, ts.PostID)
		if err != nil {
			// Score for a post deleted by the CRUD layer; skip it.
			continue
		}
		sp := ScoredPost{Post: post, Score: ts.Score}
		if req.Debug {
			sp.Debug = map[string]float64{"trending": ts.Score}
		}
		scored = append(scored, sp)
	}

	sortScored(scored)
	return scored, nil
}

// scoreDiscover surfaces posts from authors the viewer does not follow:
// 0.7*random[0,1) + 0.3*recency, reshuffled per request.
func (a *Assembler) scoreDiscover(ctx context.Context, req Request) ([]ScoredPost, error) {
	filter := store.PostFilter{Limit: candidateLimit}
	if req.ViewerID != "" {
		following, err := a.posts.Following(ctx, req.ViewerID)
		if err != nil {
			return nil, fmt.Errorf("failed to list following: %w", err)
		}
		filter.ExcludeAuthorIDs = append(following, req.ViewerID)
	}

	posts, err := a.posts.ListPosts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list discover posts: %w", err)
	}

	now := time.Now()
	scored := make([]ScoredPost, 0, len(posts))
	for _, p := range posts {
		random := a.randFloat()
		recency := ranking.TierScore(now.Sub(p.CreatedAt), ranking.DiscoverRecencyTiers(), ranking.DiscoverRecencyFallback)

		sp := ScoredPost{Post: p, Score: ranking.CompositeScoreDiscover(random, recency, a.weights)}
		if req.Debug {
			sp.Debug = map[string]float64{"random": random, "recency": recency}
		}
		scored = append(scored, sp)
	}

	sortScored(scored)
	return scored, nil
}

// trendingExcludingViewer is the recommended section's empty-graph fallback.
func (a *Assembler) trendingExcludingViewer(ctx context.Context, req Request) ([]ScoredPost, error) {
	scored, err := a.scoreTrending(ctx, req)
	if err != nil {
		return nil, err
	}
	out := scored[:0]
	for _, sp := range scored {
		if sp.Post.AuthorID != req.ViewerID {
			out = append(out, sp)
		}
	}
	return out, nil
}

// engagementBase is 1.0*likes + 2.0*comments over all time.
func (a *Assembler) engagementBase(ctx context.Context, postID string) (float64, error) {
	likes, err := a.posts.CountLikes(ctx, postID, time.Time{})
	if err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	comments, err := a.posts.CountComments(ctx, postID, time.Time{})
	if err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return float64(likes) + commentBaseWeight*float64(comments), nil
}

// trendingScore reads a post's stored score; missing or failed reads score
// zero rather than failing the section.
func (a *Assembler) trendingScore(ctx context.Context, postID string) float64 {
	ts, err := a.scores.GetScore(ctx, postID)
	if err != nil || ts == nil {
		return 0
	}
	return ts.Score
}

// loadPreference fetches the viewer's content preference when
// personalization is on. Best effort: a failure just disables the signal.
func (a *Assembler) loadPreference(ctx context.Context, req Request) *affinity.ContentPreference {
	if !req.Personalize || a.affinity == nil || req.ViewerID == "" {
		return nil
	}
	pref, err := a.affinity.GetPreference(ctx, req.ViewerID)
	if err != nil {
		a.logger.Warn("failed to load preference, skipping personalization",
			"viewer_id", req.ViewerID,
			"error", err)
		return nil
	}
	return pref
}

// personalizationScore is tag-weight match times type-preference ratio,
// with 1.0 and 0.5 defaults when no preference record exists.
func personalizationScore(p *store.Post, pref *affinity.ContentPreference) float64 {
	tagMatch := defaultTagMatch
	typeRatio := defaultTypeRatio

	if pref != nil {
		sum := 0
		for _, tag := range p.Tags {
			sum += pref.TagWeights[tag]
		}
		if sum > 0 {
			tagMatch = float64(sum) / 100.0
		}

		switch p.Type {
		case store.PostTypeNews:
			typeRatio = float64(pref.NewsWeight) / 100.0
		case store.PostTypeAudio:
			typeRatio = float64(pref.AudioWeight) / 100.0
		}
	}

	return tagMatch * typeRatio
}

// authorRanking maps interest-graph authors to a declining linear weight by
// rank, boosted for scoring.
type authorRanking struct {
	order   []string
	weights map[string]float64
}

func (r authorRanking) score(authorID string) float64 {
	if w, ok := r.weights[authorID]; ok {
		return w * interestBoost
	}
	return defaultInterestWeight
}

// interestAuthors loads the viewer's top graph authors. Errors degrade to
// an empty ranking, which triggers the trending fallback.
func (a *Assembler) interestAuthors(ctx context.Context, req Request) authorRanking {
	ar := authorRanking{weights: make(map[string]float64)}
	if a.affinity == nil || req.ViewerID == "" {
		return ar
	}

	graph, err := a.affinity.GetGraph(ctx, req.ViewerID)
	if err != nil {
		a.logger.Warn("failed to load interest graph",
			"viewer_id", req.ViewerID,
			"error", err)
		return ar
	}

	edges := graph.RankedEdges()
	if len(edges) > interestAuthorLimit {
		edges = edges[:interestAuthorLimit]
	}
	// Declining linear weight over the actual author list, so the last
	// ranked author approaches zero regardless of list length.
	for i, e := range edges {
		ar.order = append(ar.order, e.UserID)
		ar.weights[e.UserID] = 1.0 - float64(i)/float64(len(edges))
	}
	return ar
}

// sortScored orders by score descending with created_at descending
// tie-breaking.
func sortScored(scored []ScoredPost) {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Post.CreatedAt.After(scored[j].Post.CreatedAt)
	})
}
