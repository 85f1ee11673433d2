package hackpoint

// Region is one acquired block of executable-capable memory. It is
// born writable; Finalize downgrades it to execute-only, after which
// Bytes returns nil and the contents never change again. Raw
// addresses stay inside the renderer and the dispatch runtime.
type Region interface {
	Base() uintptr
	// Bytes is the writable view; nil once finalized.
	Bytes() []byte
	Finalize() error
}

// Memory provisions executable memory and mediates every touch of the
// live instruction stream. The engine needs at least two independent
// simultaneous allocations per installation pass. The native
// implementation lives in internal/vmem; tests substitute an arena.
type Memory interface {
	// Alloc acquires a writable region of n bytes.
	Alloc(n int) (Region, error)
	// Read copies n bytes of live code at addr.
	Read(addr uintptr, n int) ([]byte, error)
	// Patch overwrites live code at addr, handling the page protection
	// round-trip. This is the only mutation of code the host program
	// may itself be executing.
	Patch(addr uintptr, data []byte) error
	// CanOverwrite reports whether the span at addr contains enough
	// overwritable bytes, with no control-flow-sensitive boundary
	// violations, for the requested length.
	CanOverwrite(addr uintptr, n int) bool
}
