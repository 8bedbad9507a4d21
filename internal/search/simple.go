package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/echolabs/echofeed/internal/store"
)

// Simple matcher bounds and scores.
const (
	// simpleScanLimit bounds the recent-candidate scan.
	simpleScanLimit = 300

	simpleExactScore       = 1.0
	simpleContainmentScore = 0.8
	// simplePhoneticLift is added when phonetic codes agree.
	simplePhoneticLift = 0.15
	// simpleCutoff drops weak fuzzy matches.
	simpleCutoff = 0.6
)

// simpleResults is the fallback matcher: exact lookup, substring lookup,
// then a bounded fuzzy scan over recent candidates.
func (r *Ranker) simpleResults(ctx context.Context, terms QueryTerms, req Request) (resultSet, error) {
	var results resultSet

	if req.Kind == KindAll || req.Kind == KindPosts {
		posts, err := r.simplePosts(ctx, terms, req)
		if err != nil {
			return resultSet{}, err
		}
		results.Posts = posts
	}
	if req.Kind == KindAll || req.Kind == KindUsers {
		users, err := r.simpleUsers(ctx, terms, req)
		if err != nil {
			return resultSet{}, err
		}
		results.Users = users
	}
	return results, nil
}

func (r *Ranker) simplePosts(ctx context.Context, terms QueryTerms, req Request) ([]PostResult, error) {
	posts, err := r.source.ListPosts(ctx, store.PostFilter{Limit: simpleScanLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts for simple search: %w", err)
	}

	results := make([]PostResult, 0, len(posts))
	for _, p := range posts {
		score := simpleSimilarity(terms.Normalized, Normalize(p.Title))
		if score < simpleCutoff {
			continue
		}
		pr := PostResult{Post: p, Score: score}
		if req.Debug {
			pr.Debug = map[string]float64{"similarity": score}
		}
		results = append(results, pr)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Post.CreatedAt.After(results[j].Post.CreatedAt)
	})
	return results, nil
}

func (r *Ranker) simpleUsers(ctx context.Context, terms QueryTerms, req Request) ([]UserResult, error) {
	users, err := r.source.ListUsers(ctx, nil, simpleScanLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users for simple search: %w", err)
	}

	results := make([]UserResult, 0, len(users))
	for _, u := range users {
		score := simpleSimilarity(terms.Normalized, Normalize(u.Username))
		if full := simpleSimilarity(terms.Normalized, Normalize(u.FirstName+" "+u.LastName)); full > score {
			score = full
		}
		if score < simpleCutoff {
			continue
		}
		ur := UserResult{User: u, Score: score}
		if req.Debug {
			ur.Debug = map[string]float64{"similarity": score}
		}
		results = append(results, ur)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].User.Username < results[j].User.Username
	})
	return results, nil
}

// simpleSimilarity scores two normalized strings: equality 1.0, containment
// 0.8, otherwise normalized edit distance with a phonetic lift.
func simpleSimilarity(query, candidate string) float64 {
	if query == "" || candidate == "" {
		return 0
	}
	if query == candidate {
		return simpleExactScore
	}
	if len(query) >= minPhoneticTokenLen &&
		(strings.Contains(candidate, query) || strings.Contains(query, candidate)) {
		return simpleContainmentScore
	}

	distance := matchr.Levenshtein(query, candidate)
	longest := len(query)
	if len(candidate) > longest {
		longest = len(candidate)
	}
	score := 1.0 - float64(distance)/float64(longest)

	if phoneticEqual(query, candidate) {
		score += simplePhoneticLift
	}
	if score > simpleContainmentScore {
		// Fuzzy matches never beat a direct containment hit.
		score = simpleContainmentScore
	}
	return score
}

// phoneticEqual compares whole-string double-metaphone codes.
func phoneticEqual(a, b string) bool {
	aCode, _ := matchr.DoubleMetaphone(a)
	bCode, _ := matchr.DoubleMetaphone(b)
	return aCode != "" && aCode == bCode
}
