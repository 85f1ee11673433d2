package hackpoint

import (
	"strings"
	"unsafe"
)

// RegisterContext is the CPU state frozen by the trampoline stub at
// the instant a hook fires, laid out exactly as the stub's
// PUSHAD+PUSHFD preamble leaves it on the native stack (ascending
// addresses), with the hook-site return address above. Handlers may
// read and write every field; writing ESP relocates the logical
// stack, which the dispatch runtime reconciles before native
// execution resumes. The block lives on the firing thread's stack and
// dies when the stub epilogue runs.
type RegisterContext struct {
	Flags   uint32
	EDI     uint32
	ESI     uint32
	EBP     uint32
	ESP     uint32
	EBX     uint32
	EDX     uint32
	ECX     uint32
	EAX     uint32
	RetAddr uint32
}

const contextSize = unsafe.Sizeof(RegisterContext{})

// Register returns a pointer to the named register field, or nil for
// an unknown name. Names are matched case-insensitively.
func (r *RegisterContext) Register(name string) *uint32 {
	switch strings.ToLower(name) {
	case "eax":
		return &r.EAX
	case "ecx":
		return &r.ECX
	case "edx":
		return &r.EDX
	case "ebx":
		return &r.EBX
	case "esp":
		return &r.ESP
	case "ebp":
		return &r.EBP
	case "esi":
		return &r.ESI
	case "edi":
		return &r.EDI
	case "flags":
		return &r.Flags
	case "retaddr":
		return &r.RetAddr
	}
	return nil
}

// Process runs one hook firing: invoke the handler, interpret its
// cave_exec decision, reconcile any stack-pointer change. Returns the
// byte delta the stub must apply to ESP before its register-restoring
// epilogue; the epilogue then reads the context from its migrated
// location, so the restored state and the native stack agree with
// what the handler requested.
//
// Stateless across firings and lock-free: it touches only the
// per-firing context block and the immutable breakpoint, so
// simultaneous firings on other threads are safe.
func Process(bp *Breakpoint, caveAddr uintptr, regs *RegisterContext) int32 {
	// POPAD ignores ESP, so a handler's ESP write cannot take effect
	// through register restoration alone.
	prev := regs.ESP

	caveExec := bp.Func(regs, bp.Conf)
	if caveExec {
		// Resume the relocated original instructions.
		regs.RetAddr = uint32(caveAddr)
	}

	if regs.ESP != prev {
		diff := int32(regs.ESP - prev)
		migrateContext(regs, diff)
		return diff
	}
	return 0
}

// migrateContext moves the register context block by delta bytes.
// Byte-for-byte copy to the new base; the old base is invalid
// afterwards and must not be touched. The regions may overlap.
func migrateContext(regs *RegisterContext, delta int32) *RegisterContext {
	src := unsafe.Pointer(regs)
	dst := unsafe.Add(src, int(delta))
	copy(unsafe.Slice((*byte)(dst), contextSize), unsafe.Slice((*byte)(src), contextSize))
	return (*RegisterContext)(dst)
}

// Fire is the dispatch entry used by rendered stubs: it maps the
// definition handle patched into the stub back to its breakpoint and
// runs Process. The handle table is written only during the
// single-threaded installation pass, so firing-time reads need no
// lock.
func (e *Engine) Fire(handle uint32, caveAddr uintptr, regs *RegisterContext) int32 {
	return Process(e.installed[handle], caveAddr, regs)
}
