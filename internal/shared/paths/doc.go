// Package paths maps logical storage categories to concrete base directories.
//
// The reader persists everything under a small set of semantic roots
// (settings, data, cache, log, books) instead of literal paths. A Resolver
// translates a (relative path, category) pair into a root plus relative
// path; the storage backends join the two. The same resolver logic serves
// both the native and the web backend, only the root table differs.
//
// # Category layout
//
//	Settings  application config root       (config.json, ui state)
//	Data      application data root         (library, sync state)
//	Cache     cache root                    (thumbnails, render cache)
//	Log       log root                      (rotating log files)
//	Books     data root + "local-books/"    (one directory per book hash)
//	None      scratch root                  (temporary, self-contained paths)
//
// # Usage
//
//	r := paths.NewNativeResolver("quillreader")
//	loc := r.Resolve("abc123/config.json", paths.Books)
//	// loc.Root         = ~/.local/share/quillreader
//	// loc.RelativePath = local-books/abc123/config.json
//
// Resolution is a pure function of its inputs: no hidden state, no caching,
// safe for concurrent use.
package paths
