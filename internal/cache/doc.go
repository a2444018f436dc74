// Package cache stores rendered artifacts between generator runs.
//
// Values are opaque byte slices keyed by a content hash of everything that
// influences the output: the descriptor key, the dialect and the generator
// version. A hit means the artifact can be reused without rendering.
//
// Usage:
//
//	c := cache.NewMemoryCache()
//	key := cache.Key(descriptorKey, "postgres", codegen.Version)
//	c.Set(ctx, key, data, time.Hour)
//	if data, ok := c.Get(ctx, key); ok {
//	    // reuse data
//	}
package cache
