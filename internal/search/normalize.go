// Package search ranks posts and users against free-text queries. The
// primary pipeline combines lexical tiers, trigram similarity, phonetic
// codes and token overlap into a single relevance score; a simpler string
// matcher serves as the fallback strategy when the pipeline comes up empty.
package search

import (
	"strings"
	"sync"
	"unicode"

	"github.com/kljensen/snowball"

	"github.com/echolabs/echofeed/internal/store"
)

// maxAnalyzerEntries caps the per-process analysis cache. The cache is
// dropped wholesale when full; query analysis is cheap to redo.
const maxAnalyzerEntries = 1024

// stopwords are dropped before stemming. The list is deliberately small:
// over-aggressive removal hurts short queries more than it helps long ones.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "in": true,
	"is": true, "it": true, "of": true, "on": true, "or": true, "the": true,
	"to": true, "with": true,
}

// QueryTerms is the analyzed form of a query string.
type QueryTerms struct {
	Raw        string
	Normalized string
	// Tokens are the normalized words with stopwords removed.
	Tokens []string
	// Stemmed holds the snowball stem of each token, position-aligned
	// with Tokens.
	Stemmed []string
}

// Normalize lowercases a query, strips punctuation and collapses runs of
// whitespace.
func Normalize(q string) string {
	var b strings.Builder
	b.Grow(len(q))
	for _, r := range strings.ToLower(q) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			// Punctuation separates tokens rather than vanishing, so
			// "rock-n-roll" tokenizes as three words.
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// stem reduces a word to its snowball stem. Words the stemmer rejects pass
// through unchanged.
func stem(word string) string {
	stemmed, err := snowball.Stem(word, "english", true)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}

// analyze runs the full pipeline on a raw query.
func analyze(q string) QueryTerms {
	terms := QueryTerms{Raw: q, Normalized: Normalize(q)}
	for _, word := range strings.Fields(terms.Normalized) {
		if stopwords[word] {
			continue
		}
		terms.Tokens = append(terms.Tokens, word)
		terms.Stemmed = append(terms.Stemmed, stem(word))
	}
	return terms
}

// Analyzer caches query analysis per unique query string.
type Analyzer struct {
	mu    sync.Mutex
	cache map[string]QueryTerms
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{cache: make(map[string]QueryTerms)}
}

// Analyze returns the analyzed form of q, computing and caching it on first
// sight.
func (a *Analyzer) Analyze(q string) QueryTerms {
	a.mu.Lock()
	defer a.mu.Unlock()

	if terms, ok := a.cache[q]; ok {
		return terms
	}
	if len(a.cache) >= maxAnalyzerEntries {
		a.cache = make(map[string]QueryTerms)
	}
	terms := analyze(q)
	a.cache[q] = terms
	return terms
}

// Intent keywords for query-type sniffing.
var (
	audioKeywords = map[string]bool{"audio": true, "podcast": true, "listen": true, "episode": true}
	newsKeywords  = map[string]bool{"news": true, "article": true, "read": true, "story": true}
)

// SniffType infers a content-type pre-filter from intent keywords in the
// query. An empty result means no pre-filtering.
func SniffType(terms QueryTerms) store.PostType {
	audio, news := false, false
	for _, token := range terms.Tokens {
		if audioKeywords[token] {
			audio = true
		}
		if newsKeywords[token] {
			news = true
		}
	}
	switch {
	case audio && !news:
		return store.PostTypeAudio
	case news && !audio:
		return store.PostTypeNews
	}
	return ""
}
