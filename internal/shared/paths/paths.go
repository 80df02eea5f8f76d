package paths

import (
	"os"
	"path"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Category identifies a semantic storage root.
type Category string

const (
	Settings Category = "settings"
	Data     Category = "data"
	Cache    Category = "cache"
	Log      Category = "log"
	Books    Category = "books"
	None     Category = "none"
)

// LocalBooksDir is the subdirectory of the data root that holds one
// directory per imported book, named after the book's content hash.
const LocalBooksDir = "local-books"

// Resolved is the outcome of a single resolution. It is created per call
// and never cached or shared.
type Resolved struct {
	Root         string
	RelativePath string
	Category     Category
}

// Path joins the root and relative path into a concrete location.
func (r Resolved) Path() string {
	return filepath.Join(r.Root, filepath.FromSlash(r.RelativePath))
}

// Roots holds the base directory for each category. Books shares the data
// root; anything unrecognized falls back to Temp.
type Roots struct {
	Settings string
	Data     string
	Cache    string
	Log      string
	Temp     string
}

// Resolver translates (relative path, category) pairs into locations.
// The zero value is not usable; construct with NewResolver or one of the
// platform helpers.
type Resolver struct {
	roots Roots
}

// NewResolver creates a resolver over an explicit root table.
func NewResolver(roots Roots) *Resolver {
	return &Resolver{roots: roots}
}

// NewNativeResolver creates a resolver rooted in the host's XDG base
// directories, scoped under appName.
func NewNativeResolver(appName string) *Resolver {
	return NewResolver(Roots{
		Settings: filepath.Join(xdg.ConfigHome, appName),
		Data:     filepath.Join(xdg.DataHome, appName),
		Cache:    filepath.Join(xdg.CacheHome, appName),
		Log:      filepath.Join(xdg.StateHome, appName, "logs"),
		Temp:     filepath.Join(os.TempDir(), appName),
	})
}

// NewVirtualResolver creates a resolver over the flat virtual namespace
// used by the web backend. Roots are absolute slash paths inside the
// emulated store, not host filesystem paths.
func NewVirtualResolver() *Resolver {
	return NewResolver(Roots{
		Settings: "/settings",
		Data:     "/data",
		Cache:    "/cache",
		Log:      "/log",
		Temp:     "/tmp",
	})
}

// Resolve maps a relative path and category to a concrete location.
// Books rewrites the relative path under LocalBooksDir; every other known
// category passes the path through unchanged. Unknown categories (and
// None) resolve to the scratch root. Total over all inputs, no errors.
func (r *Resolver) Resolve(relativePath string, category Category) Resolved {
	switch category {
	case Settings:
		return Resolved{Root: r.roots.Settings, RelativePath: relativePath, Category: category}
	case Data:
		return Resolved{Root: r.roots.Data, RelativePath: relativePath, Category: category}
	case Cache:
		return Resolved{Root: r.roots.Cache, RelativePath: relativePath, Category: category}
	case Log:
		return Resolved{Root: r.roots.Log, RelativePath: relativePath, Category: category}
	case Books:
		return Resolved{Root: r.roots.Data, RelativePath: path.Join(LocalBooksDir, relativePath), Category: category}
	default:
		return Resolved{Root: r.roots.Temp, RelativePath: relativePath, Category: category}
	}
}

// Root returns the base directory a category resolves under.
func (r *Resolver) Root(category Category) string {
	return r.Resolve("", category).Root
}
