package cpu

import (
	"unsafe"

	"github.com/redknight990/sick-os-64/kernel/gate"
)

var (
	// The following functions are mocked by tests and are automatically
	// inlined by the compiler.
	loadIDTFn           = LoadIDT
	portWriteByteFn     = PortWriteByte
	portReadByteFn      = PortReadByte
	enableInterruptsFn  = EnableInterrupts
	disableInterruptsFn = DisableInterrupts

	// idtr holds the LIDT operand. It lives in a global so that it never
	// ends up on a goroutine stack that may be moved.
	idtr [gate.PseudoDescriptorSize]byte
)

// Platform exposes the privileged instructions required by the interrupt
// subsystem and the serial console.
type Platform struct{}

// LoadInterruptTable loads the IDT located at base.
func (Platform) LoadInterruptTable(base uintptr, limit uint16) {
	idtr = gate.PseudoDescriptor{Limit: limit, Base: uint64(base)}.Pack()
	loadIDTFn(uintptr(unsafe.Pointer(&idtr[0])))
}

// SetInterruptsEnabled sets or clears RFLAGS.IF.
func (Platform) SetInterruptsEnabled(enabled bool) {
	if enabled {
		enableInterruptsFn()
		return
	}
	disableInterruptsFn()
}

// PortWrite8 writes value to the given I/O port.
func (Platform) PortWrite8(port uint16, value uint8) {
	portWriteByteFn(port, value)
}

// PortRead8 reads a byte from the given I/O port.
func (Platform) PortRead8(port uint16) uint8 {
	return portReadByteFn(port)
}
