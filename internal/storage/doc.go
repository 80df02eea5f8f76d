// Package storage defines the backend contract the rest of the reader is
// written against.
//
// A Backend is the full capability set the UI and library layers need:
// read, write, delete, list, existence checks, directory management, copy,
// and conversion of local paths into displayable URLs. Every operation
// takes a relative path plus a paths.Category; the backend resolves the
// pair through a paths.Resolver before touching the underlying platform.
//
// Two implementations conform to the contract:
//   - native: real filesystem primitives (internal/storage/native)
//   - web: browser-storage emulation over bbolt (internal/storage/web)
//
// Exactly one backend is selected at process start and held behind the
// interface for the process lifetime. Nothing above this package branches
// on which implementation is active.
//
// Error policy: operations fail with the sentinel taxonomy in errors.go.
// Exists and URL never propagate errors; they degrade to false or a
// best-effort string because they sit on UI hot paths.
package storage
