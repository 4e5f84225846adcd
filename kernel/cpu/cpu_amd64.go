package cpu

// EnableInterrupts sets RFLAGS.IF so that the CPU accepts maskable interrupts.
func EnableInterrupts()

// DisableInterrupts clears RFLAGS.IF.
func DisableInterrupts()

// Halt disables interrupts and stops instruction execution. Halt never
// returns.
func Halt()

// WaitForInterrupt suspends instruction execution until the next interrupt
// arrives and has been serviced.
func WaitForInterrupt()

// LoadIDT executes LIDT using the 10-byte pseudo-descriptor located at
// descriptorAddr.
func LoadIDT(descriptorAddr uintptr)

// PortWriteByte writes a uint8 value to the requested port.
func PortWriteByte(port uint16, val uint8)

// PortReadByte reads a uint8 value from the requested port.
func PortReadByte(port uint16) uint8
