// Package cache keeps MediaWiki Action API response bodies in Redis so that
// repeated listings and lookups, from this process or any other sharing the
// server, skip the network.
//
// Keys are built from the API host and the sorted request parameters, minus
// the ones that only shape the envelope (format, formatversion, maxlag):
//
//	key := cache.CacheKey{
//		API:    "commons.wikimedia.org",
//		Params: url.Values{"action": {"query"}, "list": {"categorymembers"}, "cmtitle": {"Category:Cats"}},
//	}
//	// depicts:commons.wikimedia.org:action=query:cmtitle=Category:Cats:list=categorymembers
//
// The client stores bodies with NewEntry and reads them back with Get:
//
//	m := cache.NewManager(redisClient)
//	if entry, err := m.Get(ctx, key); err == nil {
//		return entry.Data
//	}
//	// ... call the API ...
//	_ = m.Set(ctx, key, cache.NewEntry(body, http.StatusOK, resp.Header, 5*time.Minute))
//
// Lifetime comes from Cache-Control s-maxage or max-age when positive,
// otherwise from the fallback TTL. api.php answers "max-age=0, private" for
// most queries, so the fallback is what normally applies.
//
// Metrics: mediawiki_cache_hits_total{api}, mediawiki_cache_misses_total{api},
// mediawiki_cache_bytes_total{direction}, mediawiki_cache_errors_total{operation}.
package cache
