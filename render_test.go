package hackpoint

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raikoh/hackpoint/conf"
)

const (
	testCodeBase = uintptr(0x401000)
	testDispatch = uintptr(0x20000000)
)

// testEngine maps a 64-byte code segment at testCodeBase with a hook
// site at +0x00 (plain instructions) and one at +0x20 starting with a
// relative CALL.
func testEngine(t *testing.T) (*Engine, *fakeMemory) {
	t.Helper()

	code := make([]byte, 64)
	for i := range code {
		code[i] = opNop
	}
	// 0x00: MOV EAX, 0x11223344; INC EAX; NOP; NOP
	copy(code, []byte{0xB8, 0x44, 0x33, 0x22, 0x11, 0x40, 0x90, 0x90})
	// 0x20: CALL rel32 (target 0x401125); NOP sled follows
	code[0x20] = opCallNearRel32
	binary.LittleEndian.PutUint32(code[0x21:], 0x100)

	m := newFakeMemory()
	m.mapCode(testCodeBase, code)

	reg := NewRegistry()
	require.NoError(t, reg.Register("BP_msg_select", nopHandler))
	reg.Seal()

	res := mapResolver{
		"site_a":      testCodeBase,
		"site_b":      testCodeBase + 0x20,
		"not_present": 0,
	}

	e := New(m, reg, res)
	e.DispatchEntry = testDispatch
	return e, m
}

func msgSelectNode(addrs ...string) *conf.Value {
	var items []*conf.Value
	for _, a := range addrs {
		items = append(items, conf.NewString(a))
	}
	return conf.NewObject().
		Set("cavesize", conf.NewInt(8)).
		Set("addr", conf.NewArray(items...))
}

func TestApplyRendersTrampolines(t *testing.T) {
	e, m := testEngine(t)

	bp, err := LoadBreakpoint("msg_select", msgSelectNode("site_a", "site_b"), e.Registry, e.Resolver, 0)
	require.NoError(t, err)

	origA, err := m.Read(testCodeBase, 8)
	require.NoError(t, err)
	origB, err := m.Read(testCodeBase+0x20, 8)
	require.NoError(t, err)
	oldDisp := binary.LittleEndian.Uint32(origB[1:])

	rep, err := e.Apply([]*Breakpoint{bp})
	require.NoError(t, err)
	require.Equal(t, 1, rep.Total)
	require.Equal(t, 1, rep.Installed)
	require.Equal(t, 0, rep.Skipped)
	require.Equal(t, 2, rep.Addresses)

	// One source cave region, one call cave region, both sealed.
	require.Len(t, m.regions, 2)
	src, call := m.regions[0], m.regions[1]
	require.True(t, src.sealed)
	require.True(t, call.sealed)

	entrySize := alignUp16(8 + CallLen)
	require.Len(t, src.buf, 2*entrySize)
	require.Len(t, call.buf, 2*stubSize)

	// Source cave entry A: original bytes, JMP back to site_a+8, trap
	// bytes in the alignment padding.
	require.Equal(t, origA, src.buf[:8])
	require.Equal(t, byte(opJmpNearRel32), src.buf[8])
	require.Equal(t, uint32(testCodeBase-(src.base+CallLen)),
		binary.LittleEndian.Uint32(src.buf[9:]))
	for _, b := range src.buf[13:entrySize] {
		require.Equal(t, byte(opInt3), b)
	}

	// Entry B leads with a relative CALL: its displacement must be
	// rebased so the relocated copy still reaches the old target.
	entryB := src.buf[entrySize:]
	caveBaseB := src.base + uintptr(entrySize)
	require.Equal(t, byte(opCallNearRel32), entryB[0])
	newDisp := binary.LittleEndian.Uint32(entryB[1:])
	oldTarget := uint32(testCodeBase+0x20) + CallLen + oldDisp
	require.Equal(t, oldTarget, uint32(caveBaseB)+CallLen+newDisp)

	// Stub instance A: template with the three fields patched.
	stub := call.buf[:stubSize]
	require.Equal(t, stubTemplate[:stubCaveOff], stub[:stubCaveOff])
	require.Equal(t, uint32(src.base), binary.LittleEndian.Uint32(stub[stubCaveOff:]))
	require.Equal(t, uint32(0), binary.LittleEndian.Uint32(stub[stubDefOff:]))
	require.Equal(t, uint32(testDispatch-(call.base+stubDispatchOff+4)),
		binary.LittleEndian.Uint32(stub[stubDispatchOff:]))
	require.Equal(t, stubTemplate[stubDispatchOff+4:], stub[stubDispatchOff+4:])

	// Stub instance B pairs with cave entry B.
	stubB := call.buf[stubSize:]
	require.Equal(t, uint32(caveBaseB), binary.LittleEndian.Uint32(stubB[stubCaveOff:]))

	// Live code: CALL into each slot, NOP padding to cavesize.
	live := m.code[testCodeBase]
	require.Equal(t, byte(opCallNearRel32), live[0])
	require.Equal(t, uint32(call.base-(testCodeBase+CallLen)),
		binary.LittleEndian.Uint32(live[1:]))
	require.Equal(t, []byte{opNop, opNop, opNop}, live[5:8])

	require.Equal(t, byte(opCallNearRel32), live[0x20])
	require.Equal(t, uint32(call.base+stubSize-(testCodeBase+0x20+CallLen)),
		binary.LittleEndian.Uint32(live[0x21:]))
}

// The mixed batch from the error taxonomy: an unfound handler, an
// inapplicable breakpoint and a two-address install produce a skipped
// count of 2 and exactly two rendered pairs.
func TestInstallMixedBatch(t *testing.T) {
	e, m := testEngine(t)

	cfg := conf.NewObject().
		Set("no_handler", msgSelectNode("site_a")).
		Set("not_present", conf.NewObject().
			Set("cavesize", conf.NewInt(8)).
			Set("addr", conf.NewString("not_present"))).
		Set("msg_select", msgSelectNode("site_a", "site_b"))

	rep, err := e.Install(cfg)
	require.NoError(t, err)
	require.Equal(t, 3, rep.Total)
	require.Equal(t, 2, rep.Skipped)
	require.Equal(t, 1, rep.Installed)
	require.Equal(t, 2, rep.Addresses)

	require.Len(t, m.regions, 2)
	require.Len(t, m.regions[0].buf, 2*alignUp16(8+CallLen))
	require.Len(t, m.regions[1].buf, 2*stubSize)
}

// Two breakpoints with no applicable addresses: nothing is allocated
// and both count as fully skipped.
func TestInstallNothingToDo(t *testing.T) {
	e, m := testEngine(t)

	cfg := conf.NewObject().
		Set("msg_select", conf.NewObject().
			Set("cavesize", conf.NewInt(8)).
			Set("addr", conf.NewString("not_present"))).
		Set("msg_select#2", conf.NewObject().
			Set("cavesize", conf.NewInt(8)).
			Set("addr", conf.NewString("not_present")))

	rep, err := e.Install(cfg)
	require.NoError(t, err)
	require.Equal(t, 2, rep.Total)
	require.Equal(t, 2, rep.Skipped)
	require.Equal(t, 0, rep.Installed)
	require.Equal(t, 0, rep.Addresses)
	require.Empty(t, m.regions)
}

// A room failure excludes that address but not its siblings.
func TestApplyRoomFailure(t *testing.T) {
	e, m := testEngine(t)
	m.noRoom[testCodeBase] = true

	bp, err := LoadBreakpoint("msg_select", msgSelectNode("site_a", "site_b"), e.Registry, e.Resolver, 0)
	require.NoError(t, err)

	rep, err := e.Apply([]*Breakpoint{bp})
	require.NoError(t, err)
	require.Equal(t, 1, rep.Installed)
	require.Equal(t, 1, rep.Addresses)
	require.Equal(t, StateNoRoom, bp.Addrs[0].State)
	require.Equal(t, StateValid, bp.Addrs[1].State)

	// The untouched site keeps its original first byte.
	require.Equal(t, byte(0xB8), m.code[testCodeBase][0])
}

// A failed live write abandons its cave slot; the slot must be back
// to trap bytes before the next pair reuses it, or a smaller cave
// would inherit stale code in its alignment padding.
func TestApplyRefillsSlotAfterFailedRender(t *testing.T) {
	e, m := testEngine(t)
	m.failPatch[testCodeBase] = true

	big, err := LoadBreakpoint("msg_select", msgSelectNode("site_a"), e.Registry, e.Resolver, 0)
	require.NoError(t, err)
	small, err := LoadBreakpoint("msg_select#2", conf.NewObject().
		Set("cavesize", conf.NewInt(CallLen)).
		Set("addr", conf.NewString("site_b")), e.Registry, e.Resolver, 0)
	require.NoError(t, err)

	rep, err := e.Apply([]*Breakpoint{big, small})
	require.NoError(t, err)
	require.Equal(t, 1, rep.Installed)
	require.Equal(t, 1, rep.Skipped)
	require.Equal(t, 1, rep.Addresses)
	require.Equal(t, StateInvalid, big.Addrs[0].State)

	// The small cave occupies the abandoned slot: CallLen original
	// bytes, the jump back, then nothing but trap bytes.
	src := m.regions[0]
	require.Equal(t, byte(opCallNearRel32), src.buf[0])
	require.Equal(t, byte(opJmpNearRel32), src.buf[CallLen])
	for _, b := range src.buf[2*CallLen : alignUp16(2*CallLen)] {
		require.Equal(t, byte(opInt3), b)
	}
}

func TestFixRelocationRoundTrip(t *testing.T) {
	const origAddr, caveAddr = uintptr(0x455c30), uintptr(0x30000040)

	for _, op := range []byte{opCallNearRel32, opJmpNearRel32} {
		cave := make([]byte, 8)
		cave[0] = op
		// Backward branch: old target below the instruction.
		oldDisp := uint32(0xfffffe00)
		binary.LittleEndian.PutUint32(cave[1:], oldDisp)
		oldTarget := uint32(origAddr) + CallLen + oldDisp

		fixRelocation(cave, origAddr, caveAddr)

		newDisp := binary.LittleEndian.Uint32(cave[1:])
		require.Equal(t, oldTarget, uint32(caveAddr)+CallLen+newDisp)
	}

	// Anything else at offset zero is left alone.
	cave := []byte{0xB8, 0x44, 0x33, 0x22, 0x11}
	fixRelocation(cave, origAddr, caveAddr)
	require.Equal(t, []byte{0xB8, 0x44, 0x33, 0x22, 0x11}, cave)
}
