// Package store defines the persistence contract for last-known job
// snapshots.
//
// A tracker configured with a store seeds every new session with the
// stored snapshot of its job, so the first observation is compared against
// state delivered by an earlier process instead of being treated as a
// baseline. Every changed snapshot the tracker observes is saved back.
//
// # Available Backends
//
//   - store/memory: in-memory store for development and testing
//   - store/redis: Redis backend, shared between processes
//
// # Usage
//
//	rdb := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	s := redisstore.New(rdb, redisstore.WithTTL(24*time.Hour))
//	if err := s.Ping(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	tr := tracker.New(src, tracker.WithStore(s))
package store
