// Package cache is a two-tier read cache: in-process LRU in front of
// an optional Redis tier.
//
// # Overview
//
// Get checks the LRU first, then Redis, promoting Redis hits back into
// memory. Set writes through to both tiers. Redis being down or absent
// degrades silently to memory-only; the cache never fails a request.
//
//	c := cache.New(cache.DefaultConfig(), redisClient, metrics)
//	key := cache.Key("document", subjectID, docID)
//	if body, ok := c.Get(ctx, "document", key); ok { ... }
//	c.Set(ctx, "document", key, body)
//
// # Keys
//
// Key embeds the subject id so one subject's cached view can never be
// served to another. The API layer only caches anonymous point reads,
// which all share subject id 0. Authorization decisions themselves are
// never cached; every request re-evaluates visibility against the
// database. TTLs are per key type, configured on Config.
//
// Delete removes a key from both tiers and is called from every
// mutation site that could invalidate a cached read.
package cache
