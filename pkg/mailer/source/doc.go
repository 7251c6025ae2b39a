// Package source loads template documents for the mailer.
//
// A Resolver holds an ordered list of backends and implements
// mailer.SourceResolver. Without a backend name it asks every backend in
// registration order and returns the first hit; only "not found" answers are
// skipped, any other backend failure stops the scan. With a backend name only
// that backend is asked.
//
// Backends:
//   - FS reads from any fs.FS (os.DirFS, embed.FS, fstest.MapFS)
//   - Map serves templates held in memory
//   - S3 reads objects from an S3 compatible bucket
//
// Cached wraps any backend with a cache.Cache[string] (cache.Memory or
// cache.Redis) and collapses concurrent loads of the same template into one
// backend call.
//
//	store := cache.NewRedis[string](rdb, cache.StringMarshaler{}, cache.WithPrefix("missive:templates"))
//	resolver := source.NewResolver(
//		source.NewCached(s3Backend, store, source.WithCacheTTL(10*time.Minute)),
//		source.NewFS(os.DirFS("templates")),
//	)
package source
