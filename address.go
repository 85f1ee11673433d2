package hackpoint

import (
	"strconv"

	"github.com/raikoh/hackpoint/conf"
)

// AddrState tracks what became of one candidate address.
type AddrState int

const (
	// StateUnresolved: never resolved, or resolved to zero ("not
	// applicable to this target").
	StateUnresolved AddrState = iota
	// StateValid: resolved and room-checked, will be rendered.
	StateValid
	// StateNoRoom: resolved, but the target span cannot be overwritten.
	StateNoRoom
	// StateInvalid: the resolver rejected the expression for this
	// binary/version.
	StateInvalid
)

// Addr is one candidate location for a breakpoint. Multi-address
// breakpoints hook the same logic at several call sites.
type Addr struct {
	Expr  string
	Value uintptr
	State AddrState
}

// Resolver turns an address expression into a concrete address for the
// current target binary. It must be deterministic for a given target.
// A zero result means "not applicable to this target" and is skipped
// silently.
type Resolver interface {
	Resolve(expr string, base uintptr) (uintptr, bool)
}

// ResolverFunc adapts a plain function to the Resolver interface.
type ResolverFunc func(expr string, base uintptr) (uintptr, bool)

func (f ResolverFunc) Resolve(expr string, base uintptr) (uintptr, bool) {
	return f(expr, base)
}

// addrsFromConf expands the "addr" node of a breakpoint entry into its
// declared candidate list. A single string or integer stands for a
// one-element list; integers are carried as hex literals so the
// resolver sees a uniform expression form.
func addrsFromConf(node *conf.Value) []*Addr {
	one := func(v *conf.Value) *Addr {
		if s, ok := v.Str(); ok {
			return &Addr{Expr: s}
		}
		if n, ok := v.Int(); ok && n >= 0 {
			return &Addr{Expr: "0x" + strconv.FormatInt(n, 16)}
		}
		return nil
	}
	switch node.Kind() {
	case conf.KindString, conf.KindInt:
		if a := one(node); a != nil {
			return []*Addr{a}
		}
	case conf.KindArray:
		var addrs []*Addr
		for i := 0; i < node.Len(); i++ {
			if a := one(node.At(i)); a != nil {
				addrs = append(addrs, a)
			}
		}
		return addrs
	}
	return nil
}

// resolveAddrs drives the resolver across the declared list and
// returns how many addresses resolved to something usable. Room
// checking happens later, at layout time.
func resolveAddrs(addrs []*Addr, res Resolver, base uintptr) int {
	valid := 0
	for _, a := range addrs {
		v, ok := res.Resolve(a.Expr, base)
		if !ok {
			a.State = StateInvalid
			continue
		}
		if v == 0 {
			// Not present in this build; keep unresolved, skip silently.
			continue
		}
		a.Value = v
		a.State = StateValid
		valid++
	}
	return valid
}
