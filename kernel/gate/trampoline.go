package gate

import "unsafe"

// Trampoline identifies one of the assembly entry stubs that the CPU jumps to
// when a gate fires. Each stub saves the processor state and calls
// irq.Dispatch with the current stack pointer and its vector number.
//
// The stubs are linked into the kernel image by the boot code. Their
// addresses are collected into a TrampolineTable (indexed by Trampoline)
// which the boot code hands over to the kernel.
type Trampoline uint8

const (
	// TrampolineIgnore is the default stub that every gate points to
	// unless a more specific stub is available.
	TrampolineIgnore Trampoline = 0

	// TrampolineException00 is the stub for CPU exception vector 0x00.
	// Stubs for the remaining exceptions follow sequentially.
	TrampolineException00 Trampoline = 1

	// TrampolineIRQ00 is the stub for the first hardware IRQ line. Stubs
	// for the remaining lines follow sequentially.
	TrampolineIRQ00 = TrampolineException00 + Trampoline(ExceptionCount)

	// TrampolineIRQ01 is the stub for hardware IRQ line 1.
	TrampolineIRQ01 = TrampolineIRQ00 + 1

	// TrampolineCount is the number of entries in a TrampolineTable.
	TrampolineCount = int(TrampolineIRQ00) + IRQTrampolineCount
)

// IRQTrampolineCount is the number of hardware IRQ lines with a dedicated stub.
const IRQTrampolineCount = 2

// Symbol returns the name of the linker symbol implementing the stub or an
// empty string for an unknown identifier.
func (t Trampoline) Symbol() string {
	switch {
	case t == TrampolineIgnore:
		return "irq_ignore"
	case t >= TrampolineException00 && t < TrampolineIRQ00:
		return "irq_exception_0x" + hexByte(uint8(t-TrampolineException00))
	case t >= TrampolineIRQ00 && int(t) < TrampolineCount:
		return "irq_request_0x" + hexByte(uint8(t-TrampolineIRQ00))
	}

	return ""
}

func hexByte(v uint8) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[v>>4], digits[v&0xf]})
}

// ExceptionTrampoline returns the stub for CPU exception vector v.
func ExceptionTrampoline(v InterruptNumber) (Trampoline, bool) {
	if int(v) >= ExceptionCount {
		return 0, false
	}
	return TrampolineException00 + Trampoline(v), true
}

// IRQTrampoline returns the stub for hardware IRQ line.
func IRQTrampoline(line uint8) (Trampoline, bool) {
	if int(line) >= IRQTrampolineCount {
		return 0, false
	}
	return TrampolineIRQ00 + Trampoline(line), true
}

// TrampolineTable holds the absolute address of each stub. A zero entry
// means that the stub is not present in the kernel image.
type TrampolineTable [TrampolineCount]uint64

// Address returns the address of stub t or 0 if t is unknown or missing.
func (tt *TrampolineTable) Address(t Trampoline) uintptr {
	if int(t) >= TrampolineCount {
		return 0
	}
	return uintptr(tt[t])
}

// TrampolineTableAt overlays a TrampolineTable on top of the table emitted
// by the boot code at addr.
func TrampolineTableAt(addr uintptr) *TrampolineTable {
	return (*TrampolineTable)(unsafe.Pointer(addr))
}
