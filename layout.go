package hackpoint

type defPlan struct {
	bp *Breakpoint
	// entrySize is the source cave footprint per hooked address:
	// cavesize + the jump back, rounded up for 16-byte entry alignment.
	entrySize int
	valid     int
}

func alignUp16(n int) int {
	return (n + 15) &^ 15
}

// planLayout room-checks every resolved address and sizes the two cave
// regions. An address without room is excluded and marked, but its
// sibling addresses and the rest of the batch proceed.
func (e *Engine) planLayout(defs []*Breakpoint) (plans []defPlan, sourceTotal, callTotal int) {
	for _, bp := range defs {
		pl := defPlan{bp: bp, entrySize: alignUp16(bp.CaveSize + CallLen)}
		for _, a := range bp.Addrs {
			if a.State != StateValid {
				continue
			}
			if !e.Mem.CanOverwrite(a.Value, bp.CaveSize) {
				a.State = StateNoRoom
				log.Infof("breakpoint %s: not enough source bytes at 0x%x, skipping", bp.Name, a.Value)
				continue
			}
			pl.valid++
			sourceTotal += pl.entrySize
		}
		callTotal += pl.valid * stubSize
		plans = append(plans, pl)
	}
	return plans, sourceTotal, callTotal
}
