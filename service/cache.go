package service

import (
	"fmt"
	"time"

	"github.com/dukerupert/safecheck"
	"github.com/patrickmn/go-cache"
)

// DefaultAnalyticsCacheTTL is used when no TTL is configured.
const DefaultAnalyticsCacheTTL = time.Minute

// analyticsCache keeps computed analytics summaries in memory. Any write
// to a record flushes it, so a cached summary is never older than the
// last change the server made itself.
type analyticsCache struct {
	cache *cache.Cache
}

func newAnalyticsCache(ttl time.Duration) *analyticsCache {
	if ttl <= 0 {
		ttl = DefaultAnalyticsCacheTTL
	}
	return &analyticsCache{cache: cache.New(ttl, 2*ttl)}
}

// key scopes a summary by what the user can see. Users with view_all
// share one entry; everyone else gets their own.
func (c *analyticsCache) key(user safecheck.User, f safecheck.AnalyticsFilter) string {
	scope := "all"
	if !user.Can(safecheck.PermViewAll) {
		scope = "user:" + user.Name
	}
	kind := "*"
	if f.Kind != nil {
		kind = string(*f.Kind)
	}
	return fmt.Sprintf("analytics:%s:%d:%s:%s", scope, f.Window, kind, f.Now.Format(safecheck.DateLayout))
}

func (c *analyticsCache) get(key string) (*safecheck.AnalyticsSummary, bool) {
	if cached, found := c.cache.Get(key); found {
		return cached.(*safecheck.AnalyticsSummary), true
	}
	return nil, false
}

func (c *analyticsCache) set(key string, s *safecheck.AnalyticsSummary) {
	c.cache.Set(key, s, cache.DefaultExpiration)
}

func (c *analyticsCache) invalidate() {
	c.cache.Flush()
}
