package hackpoint

import (
	"github.com/cockroachdb/errors"

	"github.com/raikoh/hackpoint/conf"
)

// Breakpoint is one validated, resolved patch request. Immutable after
// loading; the engine owns it for the process lifetime, so the handler
// and the configuration node stay reachable while installed.
type Breakpoint struct {
	Name     string
	CaveSize int
	Conf     *conf.Value
	Func     Handler
	Addrs    []*Addr
	// CaveExec is the configured default for resuming the relocated
	// original code; handlers consult it via CaveExecFlag and report
	// their final decision through their return value.
	CaveExec bool
}

// CaveExecFlag reads the cave_exec flag of a breakpoint configuration
// node. Anything but an explicit false means "resume the original
// code".
func CaveExecFlag(node *conf.Value) bool {
	return node.GetBoolDefault("cave_exec", true)
}

// LoadBreakpoint validates one configuration entry into a Breakpoint.
//
// Rejections split into two classes. Applicability misses (the ignore
// flag, zero resolved addresses) return ErrIgnored/ErrNoAddrs and are
// not errors: they usually mean the breakpoint targets a game version
// not present. Configuration errors (cavesize problems, handler not
// found) are reported to the caller but never abort a batch.
func LoadBreakpoint(name string, node *conf.Value, reg *Registry, res Resolver, base uintptr) (*Breakpoint, error) {
	if node.Kind() != conf.KindObject {
		return nil, errors.Wrapf(ErrNotObject, "breakpoint %s", name)
	}
	if node.GetBoolDefault("ignore", false) {
		return nil, errors.Wrapf(ErrIgnored, "breakpoint %s", name)
	}

	cs := node.Get("cavesize")
	if cs.IsNull() {
		return nil, errors.Wrapf(ErrCaveSizeMissing, "breakpoint %s", name)
	}
	cavesize, ok := cs.AsInt()
	if !ok {
		return nil, errors.Wrapf(ErrCaveSizeType, "breakpoint %s", name)
	}
	if cavesize < CallLen {
		return nil, errors.Wrapf(ErrCaveSizeTooSmall, "breakpoint %s: %d < %d", name, cavesize, CallLen)
	}

	addrs := addrsFromConf(node.Get("addr"))
	if resolveAddrs(addrs, res, base) == 0 {
		return nil, errors.Wrapf(ErrNoAddrs, "breakpoint %s", name)
	}

	key := breakpointKey(name)
	fn, found := reg.Lookup(key)
	if !found {
		return nil, errors.Wrapf(ErrHandlerNotFound, "breakpoint %s: key %s", name, key)
	}

	return &Breakpoint{
		Name:     name,
		CaveSize: int(cavesize),
		Conf:     node,
		Func:     fn,
		Addrs:    addrs,
		CaveExec: CaveExecFlag(node),
	}, nil
}
