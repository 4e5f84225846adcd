package gate

// InterruptNumber describes an x86 interrupt/exception/trap slot.
type InterruptNumber uint8

const (
	// DivideByZero occurs when dividing any number by 0 using the DIV or
	// IDIV instruction.
	DivideByZero = InterruptNumber(0)

	// Debug is raised by hardware breakpoints and single stepping.
	Debug = InterruptNumber(1)

	// NMI (non-maskable-interrupt) is a hardware interrupt that indicates
	// issues with RAM or unrecoverable hardware problems.
	NMI = InterruptNumber(2)

	// Breakpoint is raised by the INT3 instruction.
	Breakpoint = InterruptNumber(3)

	// Overflow is raised by the INTO instruction when RFLAGS.OF is set.
	Overflow = InterruptNumber(4)

	// BoundRangeExceeded occurs when the BOUND instruction is invoked with
	// an index out of range.
	BoundRangeExceeded = InterruptNumber(5)

	// InvalidOpcode occurs when the CPU attempts to execute an invalid or
	// undefined instruction opcode.
	InvalidOpcode = InterruptNumber(6)

	// DeviceNotAvailable occurs when the CPU attempts to execute an
	// FPU/MMX/SSE instruction while no FPU is available or while
	// FPU/MMX/SSE support has been disabled via CR0.
	DeviceNotAvailable = InterruptNumber(7)

	// DoubleFault occurs when an exception occurs within a running
	// exception handler.
	DoubleFault = InterruptNumber(8)

	// CoprocessorSegmentOverrun is reserved on modern CPUs.
	CoprocessorSegmentOverrun = InterruptNumber(9)

	// InvalidTSS occurs when the TSS points to an invalid task segment
	// selector.
	InvalidTSS = InterruptNumber(10)

	// SegmentNotPresent occurs when the CPU loads a segment or gate whose
	// present bit is clear.
	SegmentNotPresent = InterruptNumber(11)

	// StackSegmentFault occurs when attempting to push/pop from a
	// non-canonical stack address.
	StackSegmentFault = InterruptNumber(12)

	// GPFException occurs when a general protection fault occurs.
	GPFException = InterruptNumber(13)

	// PageFaultException occurs when a page table entry is not present or
	// when a privilege and/or RW protection check fails.
	PageFaultException = InterruptNumber(14)

	// Vector 15 is reserved by Intel.

	// FloatingPointException occurs while invoking an x87 instruction
	// with an unmasked FP exception pending.
	FloatingPointException = InterruptNumber(16)

	// AlignmentCheck occurs when alignment checks are enabled and an
	// unaligned memory access is performed.
	AlignmentCheck = InterruptNumber(17)

	// MachineCheck occurs when the CPU detects internal errors such as
	// memory-, bus- or cache-related errors.
	MachineCheck = InterruptNumber(18)

	// SIMDFloatingPointException occurs when an unmasked SSE exception
	// occurs while CR4.OSXMMEXCPT is set.
	SIMDFloatingPointException = InterruptNumber(19)
)

// ExceptionCount is the number of CPU exception vectors (0x00-0x13) that get
// a dedicated trampoline.
const ExceptionCount = 0x14

// FirstUserVector is the first vector that is not reserved by the CPU.
const FirstUserVector = 0x20

var exceptionNames = [ExceptionCount]string{
	"divide-by-zero",
	"debug",
	"NMI",
	"breakpoint",
	"overflow",
	"bound-range-exceeded",
	"invalid-opcode",
	"device-not-available",
	"double-fault",
	"coprocessor-segment-overrun",
	"invalid-TSS",
	"segment-not-present",
	"stack-segment-fault",
	"general-protection-fault",
	"page-fault",
	"reserved",
	"x87-floating-point",
	"alignment-check",
	"machine-check",
	"SIMD-floating-point",
}

// Name returns a short description of a CPU exception vector or an empty
// string if n is not an exception.
func (n InterruptNumber) Name() string {
	if int(n) >= ExceptionCount {
		return ""
	}
	return exceptionNames[n]
}
