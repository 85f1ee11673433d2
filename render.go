package hackpoint

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"golang.org/x/arch/x86/x86asm"
)

// apply is the single-threaded installation pass: plan the two cave
// regions, render every valid (definition, address) pair in stable
// order, then seal both regions execute-only.
func (e *Engine) apply(defs []*Breakpoint, rep *Report) (*Report, error) {
	plans, sourceTotal, callTotal := e.planLayout(defs)

	totalValid := 0
	for _, pl := range plans {
		totalValid += pl.valid
	}
	if totalValid == 0 {
		for _, pl := range plans {
			rep.skip(pl.bp.Name, "no valid addresses")
		}
		log.Info("no breakpoints to render")
		return rep, nil
	}

	src, err := e.Mem.Alloc(sourceTotal)
	if err != nil {
		return rep, errors.Wrap(err, "acquiring source cave region")
	}
	call, err := e.Mem.Alloc(callTotal)
	if err != nil {
		return rep, errors.Wrap(err, "acquiring call cave region")
	}

	// Trap prefill: a slot that never gets rendered halts visibly if
	// anything ever jumps into it.
	srcBytes := src.Bytes()
	for i := range srcBytes {
		srcBytes[i] = opInt3
	}
	callBytes := call.Bytes()

	log.Infof("rendering breakpoints (source cave at 0x%x, call cave at 0x%x)", src.Base(), call.Base())

	sp, cp := 0, 0
	for _, pl := range plans {
		if pl.valid == 0 {
			rep.skip(pl.bp.Name, "no valid addresses")
			continue
		}
		entry := ReportEntry{Name: pl.bp.Name}
		handle := e.handleFor(pl.bp)
		for _, a := range pl.bp.Addrs {
			if a.State != StateValid {
				continue
			}
			caveBase := src.Base() + uintptr(sp)
			slotBase := call.Base() + uintptr(cp)
			err := e.renderPair(pl.bp, a, handle,
				srcBytes[sp:sp+pl.entrySize], caveBase,
				callBytes[cp:cp+stubSize], slotBase)
			if err != nil {
				a.State = StateInvalid
				log.Errorf("breakpoint %s at 0x%x: %v", pl.bp.Name, a.Value, err)
				// The slot is reused by the next pair; restore the trap
				// prefill so a smaller cave cannot inherit stale bytes
				// in its padding.
				for i := sp; i < sp+pl.entrySize; i++ {
					srcBytes[i] = opInt3
				}
				continue
			}
			entry.Addrs = append(entry.Addrs, a.Value)
			rep.Addresses++
			sp += pl.entrySize
			cp += stubSize
		}
		if len(entry.Addrs) == 0 {
			rep.skip(pl.bp.Name, "no valid addresses")
			continue
		}
		rep.Installed++
		rep.Entries = append(rep.Entries, entry)
	}

	// Both regions become execute-only here; rendered trampolines can
	// no longer be corrupted.
	if err := src.Finalize(); err != nil {
		return rep, errors.Wrap(err, "sealing source cave region")
	}
	if err := call.Finalize(); err != nil {
		return rep, errors.Wrap(err, "sealing call cave region")
	}

	log.Infof("%d of %d breakpoints installed at %d addresses", rep.Installed, rep.Total, rep.Addresses)
	return rep, nil
}

// renderPair installs one hook: relocate the original bytes into the
// source cave entry, patch a stub instance into the call cave slot,
// and overwrite the live address with a CALL into that slot.
func (e *Engine) renderPair(bp *Breakpoint, a *Addr, handle uint32,
	cave []byte, caveBase uintptr, stub []byte, slotBase uintptr) error {

	orig, err := e.Mem.Read(a.Value, bp.CaveSize)
	if err != nil {
		return errors.Wrap(err, "reading original bytes")
	}

	// Source cave entry: relocated original code, then JMP back to the
	// first unmodified instruction.
	copy(cave, orig)
	fixRelocation(cave[:bp.CaveSize], a.Value, caveBase)
	scanCave(cave[:bp.CaveSize], bp.Name)
	cave[bp.CaveSize] = opJmpNearRel32
	binary.LittleEndian.PutUint32(cave[bp.CaveSize+1:], uint32(a.Value-(caveBase+CallLen)))

	// Call cave slot: stub instance with its three fields patched.
	copy(stub, stubTemplate)
	binary.LittleEndian.PutUint32(stub[stubCaveOff:], uint32(caveBase))
	binary.LittleEndian.PutUint32(stub[stubDefOff:], handle)
	binary.LittleEndian.PutUint32(stub[stubDispatchOff:], uint32(e.DispatchEntry-(slotBase+stubDispatchOff+4)))

	// Live write: CALL into the slot, NOP padding up to cavesize.
	patch := make([]byte, bp.CaveSize)
	patch[0] = opCallNearRel32
	binary.LittleEndian.PutUint32(patch[1:], uint32(slotBase-(a.Value+CallLen)))
	for i := CallLen; i < len(patch); i++ {
		patch[i] = opNop
	}
	if err := e.Mem.Patch(a.Value, patch); err != nil {
		return errors.Wrap(err, "overwriting hook site")
	}
	return nil
}

// fixRelocation rewrites the displacement of a near relative CALL or
// JMP sitting at offset zero of a relocated cave so the instruction
// still reaches its original target. Deliberately narrow: no other
// instruction form, and no other offset, is relocated.
func fixRelocation(cave []byte, origAddr, caveAddr uintptr) {
	if cave[0] != opCallNearRel32 && cave[0] != opJmpNearRel32 {
		return
	}
	old := binary.LittleEndian.Uint32(cave[1:])
	fixed := old + uint32(origAddr) - uint32(caveAddr)
	binary.LittleEndian.PutUint32(cave[1:], fixed)
	log.Debugf("fixing rel.addr. 0x%x to 0x%x", old, fixed)
}

// scanCave decodes the copied bytes and surfaces caves that end inside
// an instruction or carry relative operands past offset zero, which
// the narrow fixup does not touch. Diagnostics only.
func scanCave(cave []byte, name string) {
	for off := 0; off < len(cave); {
		inst, err := x86asm.Decode(cave[off:], 32)
		if err != nil {
			log.Debugf("breakpoint %s: cave is not a whole instruction sequence at offset %d", name, off)
			return
		}
		if off > 0 {
			for _, arg := range inst.Args {
				if arg == nil {
					break
				}
				if _, ok := arg.(x86asm.Rel); ok {
					log.Warningf("breakpoint %s: relative operand at cave offset %d is not relocated", name, off)
				}
			}
		}
		off += inst.Len
	}
}
