package hackpoint

import (
	"github.com/cockroachdb/errors"
)

// mapResolver resolves expressions from a fixed table. Absent
// expressions are invalid; entries mapped to zero mean "not present in
// this target".
type mapResolver map[string]uintptr

func (m mapResolver) Resolve(expr string, base uintptr) (uintptr, bool) {
	v, ok := m[expr]
	if !ok {
		return 0, false
	}
	return v, true
}

type fakeRegion struct {
	base   uintptr
	buf    []byte
	sealed bool
}

func (r *fakeRegion) Base() uintptr { return r.base }

func (r *fakeRegion) Bytes() []byte {
	if r.sealed {
		return nil
	}
	return r.buf
}

func (r *fakeRegion) Finalize() error {
	if r.sealed {
		return errors.New("region already finalized")
	}
	r.sealed = true
	return nil
}

// fakeMemory is an arena standing in for the live address space:
// registered code segments are the "host program", Alloc hands out
// regions at synthetic addresses.
type fakeMemory struct {
	next      uintptr
	regions   []*fakeRegion
	code      map[uintptr][]byte
	noRoom    map[uintptr]bool
	failPatch map[uintptr]bool
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{
		next:      0x30000000,
		code:      map[uintptr][]byte{},
		noRoom:    map[uintptr]bool{},
		failPatch: map[uintptr]bool{},
	}
}

func (m *fakeMemory) mapCode(base uintptr, code []byte) {
	m.code[base] = code
}

func (m *fakeMemory) segment(addr uintptr, n int) ([]byte, int, bool) {
	for base, seg := range m.code {
		if addr >= base && addr+uintptr(n) <= base+uintptr(len(seg)) {
			return seg, int(addr - base), true
		}
	}
	return nil, 0, false
}

func (m *fakeMemory) Alloc(n int) (Region, error) {
	r := &fakeRegion{base: m.next, buf: make([]byte, n)}
	m.next += uintptr(n) + 0x1000
	m.regions = append(m.regions, r)
	return r, nil
}

func (m *fakeMemory) Read(addr uintptr, n int) ([]byte, error) {
	seg, off, ok := m.segment(addr, n)
	if !ok {
		return nil, errors.Newf("read outside mapped code: 0x%x", addr)
	}
	out := make([]byte, n)
	copy(out, seg[off:])
	return out, nil
}

func (m *fakeMemory) Patch(addr uintptr, data []byte) error {
	if m.failPatch[addr] {
		return errors.Newf("page protection denied at 0x%x", addr)
	}
	seg, off, ok := m.segment(addr, len(data))
	if !ok {
		return errors.Newf("patch outside mapped code: 0x%x", addr)
	}
	copy(seg[off:], data)
	return nil
}

func (m *fakeMemory) CanOverwrite(addr uintptr, n int) bool {
	if m.noRoom[addr] {
		return false
	}
	_, _, ok := m.segment(addr, n)
	return ok
}
