package hackpoint

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrIgnored means the configuration disabled this breakpoint
	ErrIgnored = errors.New("breakpoint ignored by configuration")
	// ErrNoAddrs means no address resolved for this target
	ErrNoAddrs = errors.New("no addresses apply to this target")
	// ErrNotObject means the configuration node is not an object
	ErrNotObject = errors.New("breakpoint configuration is not an object")
	// ErrCaveSizeMissing means no cavesize was specified
	ErrCaveSizeMissing = errors.New("no cavesize specified")
	// ErrCaveSizeType means cavesize is neither an integer nor an integer expression
	ErrCaveSizeType = errors.New("cavesize must be an integer or an integer string")
	// ErrCaveSizeTooSmall means cavesize cannot fit a near call
	ErrCaveSizeTooSmall = errors.New("cavesize too small to implement breakpoint")
	// ErrHandlerNotFound means the registry has no handler under the breakpoint key
	ErrHandlerNotFound = errors.New("handler not found")
	// ErrDoubleRegister means a handler name was registered twice
	ErrDoubleRegister = errors.New("handler already registered")
	// ErrSealedRegistry means registration was attempted after sealing
	ErrSealedRegistry = errors.New("registry is sealed")
)

// silentSkip reports whether err is an applicability miss rather than a
// configuration error. Applicability misses are logged at debug level
// only; they usually mean the breakpoint targets another build of the
// host binary.
func silentSkip(err error) bool {
	return errors.Is(err, ErrIgnored) || errors.Is(err, ErrNoAddrs)
}
