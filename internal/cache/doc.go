// Package cache is the client-side cache that keeps the dashboard from
// refetching data it already has.
//
// Every entry carries two horizons. Until staleAt it is fresh and Fetch
// answers from memory. Between staleAt and expiresAt it is stale: Fetch goes
// to the network but falls back to the stale value if the request fails.
// After expiresAt the entry is gone and is deleted the next time it is read;
// there is no background sweep.
//
//	now < staleAt              fresh
//	staleAt <= now < expiresAt stale (usable as fallback)
//	now >= expiresAt           gone
//
// Keys are composite values compared structurally:
//
//	cache.Key{"orders", branchID, date}
//
// Usage:
//
//	orders, err := cache.Fetch(ctx, c, cache.Key{"orders", 3, "2026-10-19"},
//		func(ctx context.Context) ([]api.Order, error) {
//			return client.ListOrders(ctx, api.OrderQuery{BranchID: 3, Date: "2026-10-19"})
//		}, cache.Policy{})
package cache
