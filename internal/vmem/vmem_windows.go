//go:build windows

package vmem

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/windows"
)

// Alloc acquires a committed read/write region of n bytes.
func Alloc(n int) (*Block, error) {
	base, err := windows.VirtualAlloc(0, uintptr(n),
		windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, errors.Wrapf(err, "VirtualAlloc %d bytes", n)
	}
	return &Block{base: base, buf: view(base, n)}, nil
}

func protectWrite(addr, size uintptr) error {
	var old uint32
	err := windows.VirtualProtect(addr, size, windows.PAGE_EXECUTE_READWRITE, &old)
	return errors.Wrapf(err, "VirtualProtect rwx at 0x%x", addr)
}

func protectExec(addr, size uintptr) error {
	var old uint32
	err := windows.VirtualProtect(addr, size, windows.PAGE_EXECUTE, &old)
	return errors.Wrapf(err, "VirtualProtect exec at 0x%x", addr)
}

// CanOverwrite walks the committed regions covering the span and
// rejects anything uncommitted, guarded or inaccessible.
func CanOverwrite(addr uintptr, n int) bool {
	var mbi windows.MemoryBasicInformation
	end := addr + uintptr(n)
	for addr < end {
		if err := windows.VirtualQuery(addr, &mbi, unsafe.Sizeof(mbi)); err != nil {
			return false
		}
		if mbi.State != windows.MEM_COMMIT {
			return false
		}
		if mbi.Protect&(windows.PAGE_NOACCESS|windows.PAGE_GUARD) != 0 {
			return false
		}
		addr = mbi.BaseAddress + mbi.RegionSize
	}
	return true
}
