package hackpoint

const (
	opCallNearRel32 = 0xE8
	opJmpNearRel32  = 0xE9
	opNop           = 0x90
	opInt3          = 0xCC
)

// CallLen is the encoded length of a near CALL or JMP: one opcode byte
// plus a 4-byte relative displacement. It is the minimum usable
// cavesize.
const CallLen = 5

// stubTemplate is the trampoline stub: the machine code copied, once
// per hooked address, into a call cave slot. Each copy gets three
// fields patched in before the region goes execute-only:
//
//	stubCaveOff     absolute address of the paired source cave entry
//	stubDefOff      definition handle passed through to dispatch
//	stubDispatchOff rel32 displacement to the dispatch runtime entry
//
// The stub freezes the full register state below the hook-site return
// address, hands dispatch a pointer to that block, then restores from
// wherever the block ended up. Dispatch returns the stack delta in
// EAX; ADD ESP, EAX applies it before POPFD/POPAD read the (possibly
// migrated) context, so a handler that moved ESP gets exactly the
// stack it asked for when RET executes.
var stubTemplate = []byte{
	0x60,             // PUSHAD
	0x9C,             // PUSHFD
	0xFC,             // CLD
	0xB8, 0, 0, 0, 0, // MOV EAX, <source cave entry>
	0x54,             // PUSH ESP            ; register context
	0x50,             // PUSH EAX            ; cave address
	0xB8, 0, 0, 0, 0, // MOV EAX, <definition handle>
	0x50,             // PUSH EAX            ; definition
	0xE8, 0, 0, 0, 0, // CALL <dispatch runtime>
	0x83, 0xC4, 0x0C, // ADD ESP, 12         ; drop cdecl args
	0x01, 0xC4, // ADD ESP, EAX        ; stack delta
	0x9D, // POPFD
	0x61, // POPAD
	0xC3, // RET
}

const (
	stubCaveOff     = 4
	stubDefOff      = 11
	stubDispatchOff = 17
	stubSize        = 29
)
