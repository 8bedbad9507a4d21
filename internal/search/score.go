package search

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/echolabs/echofeed/internal/ranking"
	"github.com/echolabs/echofeed/internal/store"
)

// fieldTiers holds the lexical tier scores for one indexed field. The
// relevance of a candidate is the max over all signals, so one strong match
// dominates several weak ones.
type fieldTiers struct {
	exact    float64
	prefix   float64
	contains float64
	// weight scales the trigram similarity signal for this field.
	weight float64
}

var (
	titleTiers       = fieldTiers{exact: 5.0, prefix: 4.0, contains: 2.5, weight: 2.0}
	descriptionTiers = fieldTiers{exact: 3.0, prefix: 1.5, contains: 1.0, weight: 1.0}
	usernameTiers    = fieldTiers{exact: 4.5, prefix: 3.0, contains: 2.0, weight: 0.6}
	nameTiers        = fieldTiers{exact: 3.0, prefix: 1.5, contains: 1.0, weight: 0.5}
)

// tagMatchScore applies when a query token equals a post tag.
const tagMatchScore = 3.0

// Full-text rank weights per result kind.
const (
	postRankWeight = 2.0
	userRankWeight = 1.5
)

// Phonetic bonus values.
const (
	phoneticCodeBonus   = 0.8
	phoneticSuffixBonus = 0.6
	minPhoneticTokenLen = 3
	minSuffixLen        = 4
)

// Popularity term weights for post results.
const (
	viewPopularityWeight    = 0.005
	likePopularityWeight    = 0.01
	commentPopularityWeight = 0.02
)

// signal is the raw per-candidate scoring breakdown before kind-specific
// adjustments.
type signal struct {
	// relevance is the max over all lexical, fuzzy and phonetic tiers.
	relevance float64
	// rank is the stemmed token-overlap fraction in [0,1], scaled by the
	// kind's rank weight into the relevance max.
	rank float64
	// substring reports whether any indexed field contains the query.
	substring bool
	// exact reports an exact match on the candidate's primary field.
	// Exact matches always sort ahead of everything else.
	exact bool
}

// fieldSignal scores one field against the query and folds it into s.
func (s *signal) fieldSignal(terms QueryTerms, field string, tiers fieldTiers, primary bool) {
	normalized := Normalize(field)
	if normalized == "" || terms.Normalized == "" {
		return
	}

	switch {
	case normalized == terms.Normalized:
		s.bump(tiers.exact)
		if primary {
			s.exact = true
		}
		s.substring = true
	case strings.HasPrefix(normalized, terms.Normalized):
		s.bump(tiers.prefix)
		s.substring = true
	case strings.Contains(normalized, terms.Normalized):
		s.bump(tiers.contains)
		s.substring = true
	}

	s.bump(ranking.TrigramSimilarity(terms.Normalized, normalized) * tiers.weight)
	s.bump(phoneticBonus(terms.Tokens, strings.Fields(normalized)))
}

func (s *signal) bump(score float64) {
	if score > s.relevance {
		s.relevance = score
	}
}

// tokenRank is the fraction of query tokens whose stem appears among the
// candidate's stemmed tokens. It stands in for a search-index rank.
func tokenRank(terms QueryTerms, fields ...string) float64 {
	if len(terms.Stemmed) == 0 {
		return 0
	}

	candidate := make(map[string]bool)
	for _, field := range fields {
		for _, word := range strings.Fields(Normalize(field)) {
			candidate[stem(word)] = true
		}
	}

	matched := 0
	for _, st := range terms.Stemmed {
		if candidate[st] {
			matched++
		}
	}
	return float64(matched) / float64(len(terms.Stemmed))
}

// phoneticBonus scores sound-alike token pairs: matching double-metaphone
// primary codes beat plain suffix overlap.
func phoneticBonus(queryTokens, fieldTokens []string) float64 {
	bonus := 0.0
	for _, qt := range queryTokens {
		if len(qt) < minPhoneticTokenLen {
			continue
		}
		qCode, _ := matchr.DoubleMetaphone(qt)
		for _, ft := range fieldTokens {
			if len(ft) < minPhoneticTokenLen {
				continue
			}
			fCode, _ := matchr.DoubleMetaphone(ft)
			if qCode != "" && qCode == fCode {
				return phoneticCodeBonus
			}
			if suffixMatch(qt, ft) {
				bonus = phoneticSuffixBonus
			}
		}
	}
	return bonus
}

// suffixMatch reports whether one token is a sufficiently long suffix of the
// other. Catches spelling variants like "jon"/"jhon" endings.
func suffixMatch(a, b string) bool {
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	return len(shorter) >= minSuffixLen && strings.HasSuffix(longer, shorter)
}

// postSignal scores a post's indexed fields against the query.
func postSignal(terms QueryTerms, p *store.Post) signal {
	var s signal
	s.fieldSignal(terms, p.Title, titleTiers, true)
	s.fieldSignal(terms, p.Description, descriptionTiers, false)

	for _, token := range terms.Tokens {
		for _, tag := range p.Tags {
			if strings.EqualFold(tag, token) {
				s.bump(tagMatchScore)
			}
		}
	}

	s.rank = tokenRank(terms, p.Title, p.Description)
	s.bump(s.rank * postRankWeight)
	return s
}

// userSignal scores a user's indexed fields against the query.
func userSignal(terms QueryTerms, u *store.User) signal {
	var s signal
	s.fieldSignal(terms, u.Username, usernameTiers, true)
	s.fieldSignal(terms, u.FirstName, nameTiers, false)
	s.fieldSignal(terms, u.LastName, nameTiers, false)
	s.fieldSignal(terms, u.FirstName+" "+u.LastName, nameTiers, false)

	s.rank = tokenRank(terms, u.Username, u.FirstName, u.LastName)
	s.bump(s.rank * userRankWeight)
	return s
}
