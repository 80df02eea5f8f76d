package paths

import (
	"os"
	"runtime"
	"sync"
)

// Kind identifies the runtime environment a backend targets.
type Kind string

const (
	KindNative Kind = "native"
	KindWeb    Kind = "web"
)

// Platform reports the detected runtime kind. The value is computed on
// first use and immutable for the process lifetime.
var Platform = sync.OnceValue(detectPlatform)

func detectPlatform() Kind {
	if runtime.GOOS == "js" {
		return KindWeb
	}
	// The desktop shell sets this when it hosts the process without
	// granting real filesystem access.
	if os.Getenv("READER_PLATFORM") == "web" {
		return KindWeb
	}
	return KindNative
}
