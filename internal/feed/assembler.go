// Package feed assembles the multi-section personalized feed: following,
// recommended, trending and discover sections, independently scored and
// paginated, with posts deduplicated across sections and a fallback chain
// that degrades from sectioned assembly down to a plain recent listing.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/echolabs/echofeed/internal/affinity"
	"github.com/echolabs/echofeed/internal/ranking"
	"github.com/echolabs/echofeed/internal/store"
	"github.com/echolabs/echofeed/internal/trending"
)

// Section names.
const (
	SectionFollowing   = "following"
	SectionRecommended = "recommended"
	SectionTrending    = "trending"
	SectionDiscover    = "discover"
	SectionAll         = "all"
)

// Limits and candidate bounds.
const (
	DefaultLimit   = 20
	MaxLimit       = 50
	candidateLimit = 500

	// trendingFallbackSize is the size of the whole-assembly fallback.
	trendingFallbackSize = 10
)

// ValidSection reports whether name is a requestable section.
func ValidSection(name string) bool {
	switch name {
	case SectionFollowing, SectionRecommended, SectionTrending, SectionDiscover, SectionAll:
		return true
	}
	return false
}

// Request describes one feed assembly.
type Request struct {
	// ViewerID is empty for anonymous viewers, who skip the
	// following and recommended sections.
	ViewerID string
	// Section is one of the section names; "all" fans out.
	Section string
	// Page is 1-based.
	Page int
	// Limit is the per-section page size, capped at MaxLimit.
	Limit int
	// Personalize gates affinity-based scoring.
	Personalize bool
	// Debug attaches per-signal score breakdowns to each post.
	Debug bool
}

// ScoredPost is a post with its final section score.
type ScoredPost struct {
	Post  *store.Post        `json:"post"`
	Score float64            `json:"score"`
	Debug map[string]float64 `json:"_debug,omitempty"`
}

// Section is one scored, paginated feed section.
type Section struct {
	Name    string       `json:"name"`
	Posts   []ScoredPost `json:"posts"`
	Page    int          `json:"page"`
	Limit   int          `json:"limit"`
	Total   int          `json:"total"`
	HasMore bool         `json:"has_more"`
}

// Response is an assembled feed.
type Response struct {
	Sections         map[string]*Section `json:"sections"`
	SectionsIncluded []string            `json:"sections_included"`
	HasMore          bool                `json:"has_more"`
	// Strategy names the assembly strategy that produced the response.
	Strategy string `json:"strategy,omitempty"`
}

// PostSource is the slice of the interaction store the assembler reads.
// store.InteractionStore satisfies it.
type PostSource interface {
	GetPost(ctx context.Context, id string) (*store.Post, error)
	ListPosts(ctx context.Context, f store.PostFilter) ([]*store.Post, error)
	CountLikes(ctx context.Context, postID string, since time.Time) (int, error)
	CountComments(ctx context.Context, postID string, since time.Time) (int, error)
	Following(ctx context.Context, userID string) ([]string, error)
}

// Assembler builds feed responses.
type Assembler struct {
	posts    PostSource
	scores   trending.ScoreStore
	affinity *affinity.Model
	weights  *ranking.Weights
	budget   ranking.Budget
	logger   *slog.Logger

	// Rand drives the discover section. Tests inject a seeded source;
	// production uses a time-seeded one.
	randMu sync.Mutex
	rand   *rand.Rand
}

// NewAssembler creates a feed assembler. weights may be nil for defaults;
// model may be nil to disable personalization entirely.
func NewAssembler(posts PostSource, scores trending.ScoreStore, model *affinity.Model, weights *ranking.Weights, budget ranking.Budget, logger *slog.Logger) *Assembler {
	if weights == nil {
		weights = ranking.DefaultWeights()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		posts:    posts,
		scores:   scores,
		affinity: model,
		weights:  weights,
		budget:   budget,
		logger:   logger,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRand replaces the discover section's randomness source.
func (a *Assembler) SetRand(r *rand.Rand) {
	a.randMu.Lock()
	a.rand = r
	a.randMu.Unlock()
}

func (a *Assembler) randFloat() float64 {
	a.randMu.Lock()
	defer a.randMu.Unlock()
	return a.rand.Float64()
}

// Assemble builds the feed for a request, walking the fallback chain:
// sectioned assembly, then the trending top 10, then the most recent posts.
// The last strategy has no score dependencies and must not fail.
func (a *Assembler) Assemble(ctx context.Context, req Request) (*Response, error) {
	req = normalizeRequest(req)

	ctx, cancel := a.budget.Apply(ctx)
	defer cancel()

	for _, s := range a.strategies() {
		resp, err := s.run(ctx, req)
		if err == nil && resp != nil {
			resp.Strategy = s.name
			return resp, nil
		}
		a.logger.Warn("feed strategy failed, trying next",
			"strategy", s.name,
			"viewer_id", req.ViewerID,
			"error", err)
	}
	return nil, fmt.Errorf("all feed strategies failed")
}

type strategy struct {
	name string
	run  func(ctx context.Context, req Request) (*Response, error)
}

func (a *Assembler) strategies() []strategy {
	return []strategy{
		{name: "sectioned", run: a.assembleSections},
		{name: "trending_fallback", run: a.trendingFallback},
		{name: "recent_fallback", run: a.recentFallback},
	}
}

func normalizeRequest(req Request) Request {
	if req.Section == "" {
		req.Section = SectionAll
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	return req
}

// sectionsFor resolves the requested section list in assembly order.
// Anonymous viewers skip the personalized sections.
func sectionsFor(req Request) []string {
	if req.Section != SectionAll {
		if req.ViewerID == "" && (req.Section == SectionFollowing || req.Section == SectionRecommended) {
			return nil
		}
		return []string{req.Section}
	}
	if req.ViewerID == "" {
		return []string{SectionTrending, SectionDiscover}
	}
	return []string{SectionFollowing, SectionRecommended, SectionTrending, SectionDiscover}
}

// assembleSections is the primary strategy: each requested section is
// scored independently, deduplicated against posts surfaced by earlier
// sections, and paginated. A failing section is omitted, not fatal.
func (a *Assembler) assembleSections(ctx context.Context, req Request) (*Response, error) {
	names := sectionsFor(req)
	if len(names) == 0 {
		return nil, fmt.Errorf("section %q requires a signed-in viewer", req.Section)
	}

	resp := &Response{Sections: make(map[string]*Section)}
	seen := make(map[string]bool)
	failed := 0

	for _, name := range names {
		scored, err := a.scoreSection(ctx, name, req)
		if err != nil {
			failed++
			a.logger.Warn("feed section failed, omitting",
				"section", name,
				"viewer_id", req.ViewerID,
				"error", err)
			continue
		}

		section := paginate(name, dedup(scored, seen), req)
		for _, sp := range section.Posts {
			seen[sp.Post.ID] = true
		}

		resp.Sections[name] = section
		resp.SectionsIncluded = append(resp.SectionsIncluded, name)
		if section.HasMore {
			resp.HasMore = true
		}
	}

	if failed == len(names) {
		return nil, fmt.Errorf("every requested feed section failed")
	}
	return resp, nil
}

// dedup drops posts already surfaced by an earlier section.
func dedup(scored []ScoredPost, seen map[string]bool) []ScoredPost {
	out := scored[:0]
	for _, sp := range scored {
		if !seen[sp.Post.ID] {
			out = append(out, sp)
		}
	}
	return out
}

// paginate applies offset pagination to a fully scored section.
func paginate(name string, scored []ScoredPost, req Request) *Section {
	total := len(scored)
	offset := (req.Page - 1) * req.Limit

	var page []ScoredPost
	if offset < total {
		end := offset + req.Limit
		if end > total {
			end = total
		}
		page = scored[offset:end]
	}

	return &Section{
		Name:    name,
		Posts:   page,
		Page:    req.Page,
		Limit:   req.Limit,
		Total:   total,
		HasMore: total > offset+req.Limit,
	}
}

// trendingFallback serves the trending top 10 when sectioned assembly
// fails entirely.
func (a *Assembler) trendingFallback(ctx context.Context, req Request) (*Response, error) {
	scored, err := a.scoreTrending(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(scored) > trendingFallbackSize {
		scored = scored[:trendingFallbackSize]
	}

	section := &Section{
		Name:  SectionTrending,
		Posts: scored,
		Page:  1,
		Limit: trendingFallbackSize,
		Total: len(scored),
	}
	return &Response{
		Sections:         map[string]*Section{SectionTrending: section},
		SectionsIncluded: []string{SectionTrending},
	}, nil
}

// recentFallback is the outermost fallback: the most recent posts with no
// score dependencies at all.
func (a *Assembler) recentFallback(ctx context.Context, req Request) (*Response, error) {
	posts, err := a.posts.ListPosts(ctx, store.PostFilter{Limit: req.Limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent posts: %w", err)
	}

	scored := make([]ScoredPost, 0, len(posts))
	for _, p := range posts {
		scored = append(scored, ScoredPost{Post: p})
	}
	section := &Section{
		Name:  "recent",
		Posts: scored,
		Page:  1,
		Limit: req.Limit,
		Total: len(scored),
	}
	return &Response{
		Sections:         map[string]*Section{"recent": section},
		SectionsIncluded: []string{"recent"},
	}, nil
}
