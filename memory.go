package hackpoint

import (
	"github.com/raikoh/hackpoint/internal/vmem"
)

type nativeMemory struct{}

// NativeMemory returns the Memory implementation backed by the running
// process's own address space.
func NativeMemory() Memory {
	return nativeMemory{}
}

func (nativeMemory) Alloc(n int) (Region, error) {
	b, err := vmem.Alloc(n)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (nativeMemory) Read(addr uintptr, n int) ([]byte, error) {
	return vmem.Read(addr, n)
}

func (nativeMemory) Patch(addr uintptr, data []byte) error {
	return vmem.Patch(addr, data)
}

func (nativeMemory) CanOverwrite(addr uintptr, n int) bool {
	return vmem.CanOverwrite(addr, n)
}
