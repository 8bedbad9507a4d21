// Package cache provides the short-TTL result cache in front of the ranking
// pipelines. Values are CBOR-encoded. Callers treat the cache as an
// optimization: a miss or an error means recompute, never a request failure.
package cache

import (
	"context"
	"strings"
	"time"
)

// DefaultSearchTTL bounds how stale a served search result can be.
const DefaultSearchTTL = 120 * time.Second

// DefaultTrendingSearchesTTL bounds the trending-searches aggregation.
const DefaultTrendingSearchesTTL = time.Hour

// keyPrefix namespaces all cache keys written by this service.
const keyPrefix = "echofeed"

// Cache stores encoded values with a per-entry TTL.
type Cache interface {
	// Get decodes the value at key into dest. The boolean reports whether
	// the key was present and unexpired.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set encodes value and stores it at key for ttl.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Key joins parts into a namespaced cache key.
func Key(parts ...string) string {
	return keyPrefix + ":" + strings.Join(parts, ":")
}

// SearchKey builds the key for a cached search result set. userID is empty
// for anonymous searches.
func SearchKey(normalizedQuery, kind, userID string) string {
	return Key("search", kind, userID, normalizedQuery)
}

// TrendingSearchesKey is the key for the trending-searches aggregation.
func TrendingSearchesKey() string {
	return Key("search", "trending_queries")
}
