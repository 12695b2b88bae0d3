package cache

import "context"

// Fetch returns fresh cached data for key without calling fetch. Otherwise it
// calls fetch, caches the result and returns it. When fetch fails and a stale
// but unexpired entry exists, the stale data is returned instead of the error.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error), policy Policy) (T, error) {
	if e, ok := c.Get(key); ok && !e.IsStale {
		if v, ok := e.Data.(T); ok {
			return v, nil
		}
	}

	v, err := fetch(ctx)
	if err != nil {
		if e, _ := c.lookup(key); e != nil {
			if stale, ok := e.Data.(T); ok {
				c.recorder.IncStaleFallback()
				return stale, nil
			}
		}
		var zero T
		return zero, err
	}

	c.Set(key, v, policy)
	return v, nil
}
