package hackpoint

import (
	"github.com/cockroachdb/errors"

	"github.com/raikoh/hackpoint/conf"
)

// Engine owns one installation pass and the installed hook graph
// afterwards. Installation runs exactly once, single-threaded, before
// any hook can fire; the engine is read-only from then on.
type Engine struct {
	Mem      Memory
	Registry *Registry
	Resolver Resolver

	// DispatchEntry is the address of the native dispatch thunk
	// embedded (as a rel32) into every rendered stub. The embedding
	// layer supplies it; the engine never discovers code addresses on
	// its own.
	DispatchEntry uintptr

	// ModuleBase is handed to the resolver with every expression.
	ModuleBase uintptr

	installed []*Breakpoint
}

func New(mem Memory, reg *Registry, res Resolver) *Engine {
	return &Engine{Mem: mem, Registry: reg, Resolver: res}
}

// Install loads every entry of a breakpoint configuration object, in
// declaration order, and renders the loadable ones. Per-entry
// failures skip that entry only; the worst outcome is a report saying
// how many of the submitted breakpoints could not be installed.
func (e *Engine) Install(cfg *conf.Value) (*Report, error) {
	if cfg.Kind() != conf.KindObject {
		return nil, errors.Wrap(ErrNotObject, "breakpoint set")
	}
	rep := &Report{}
	var defs []*Breakpoint
	log.Infof("setting up %d breakpoints", cfg.Len())
	for _, name := range cfg.Keys() {
		rep.Total++
		bp, err := LoadBreakpoint(name, cfg.Get(name), e.Registry, e.Resolver, e.ModuleBase)
		if err != nil {
			if silentSkip(err) {
				log.Debugf("%v", err)
			} else {
				log.Errorf("%v", err)
			}
			rep.skip(name, err.Error())
			continue
		}
		defs = append(defs, bp)
	}
	return e.apply(defs, rep)
}

// Apply renders a batch of already-loaded definitions. The report
// carries the fully-skipped count against the submitted total; a
// partially or fully skipped batch is not an error.
func (e *Engine) Apply(defs []*Breakpoint) (*Report, error) {
	rep := &Report{Total: len(defs)}
	return e.apply(defs, rep)
}

// handleFor assigns the definition handle rendered into stub
// instances. Handles index the installed table Fire reads at hook
// time; the table only grows during installation.
func (e *Engine) handleFor(bp *Breakpoint) uint32 {
	for i, cur := range e.installed {
		if cur == bp {
			return uint32(i)
		}
	}
	e.installed = append(e.installed, bp)
	return uint32(len(e.installed) - 1)
}
