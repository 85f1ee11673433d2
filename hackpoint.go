/*
Package hackpoint installs breakpoint-style hooks into the instruction
stream of the running process, without a debugger or a kernel driver.

How it works:

TARGET ADDRESS (live code)
  - the first cavesize bytes are overwritten with a CALL into a
    call cave slot, padded with NOPs

CALL CAVE SLOT
  - one patched copy of the trampoline stub template per hooked
    address; the stub freezes the register state, calls the dispatch
    runtime and restores/redirects execution afterwards

SOURCE CAVE ENTRY
  - the original bytes that were overwritten, relocation-fixed,
    followed by a JMP back to the first unmodified instruction; only
    executed when the handler asks for cave_exec

Installation runs once, single-threaded, early in the process
lifetime. Firing happens on whichever native thread reaches a hooked
address; the engine holds no locks on that path.
*/
package hackpoint

import (
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("hackpoint")
