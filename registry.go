package hackpoint

import (
	"strings"

	"github.com/raikoh/hackpoint/conf"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Handler is invoked every time an installed hook fires. It may read
// and write any field of the register context, including ESP. The
// return value decides cave_exec: true resumes the relocated original
// instructions, false skips them.
//
// Handlers run on whichever native thread reached the hook, possibly
// on several threads at once; they must be reentrant.
type Handler func(regs *RegisterContext, node *conf.Value) bool

// Registry is the process-wide name-to-handler table. It is populated
// during an explicit initialization phase, sealed, and then only read.
// Two namespaces exist: named hooks, registered under a "BP_" prefixed
// key, and raw code-cave targets, registered under their full
// "codecave:" name.
type Registry struct {
	handlers map[string]Handler
	sealed   bool
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

// Register adds a handler under its full key ("BP_msg_select",
// "codecave:th06_music"). Registration after Seal is an error.
func (r *Registry) Register(key string, h Handler) error {
	if r.sealed {
		return ErrSealedRegistry
	}
	if _, ok := r.handlers[key]; ok {
		return ErrDoubleRegister
	}
	r.handlers[key] = h
	return nil
}

// Seal freezes the table. Install must only run against a sealed
// registry; firing-time lookups never happen, so sealing removes any
// need for locking.
func (r *Registry) Seal() {
	r.sealed = true
}

func (r *Registry) Lookup(key string) (Handler, bool) {
	h, ok := r.handlers[key]
	return h, ok
}

// Names returns all registered keys, sorted.
func (r *Registry) Names() []string {
	names := maps.Keys(r.handlers)
	slices.Sort(names)
	return names
}

// breakpointKey maps a breakpoint name to its registry key. Named
// hooks drop the "#slot" suffix of multi-instance breakpoints and get
// the "BP_" prefix; raw code-cave targets are looked up under their
// full name, slot suffix included.
func breakpointKey(name string) string {
	if strings.HasPrefix(name, "codecave:") {
		return name
	}
	if i := strings.IndexByte(name, '#'); i >= 0 {
		name = name[:i]
	}
	return "BP_" + name
}
