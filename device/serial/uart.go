// Package serial implements a driver for 16550-compatible UARTs that the
// kernel uses as its log console.
package serial

import (
	"io"

	"github.com/redknight990/sick-os-64/device"
	"github.com/redknight990/sick-os-64/kernel"
	"github.com/redknight990/sick-os-64/kernel/cpu"
	"github.com/redknight990/sick-os-64/kernel/kfmt"
)

// COM1 is the I/O base address of the first serial port.
const COM1 uint16 = 0x3f8

// Register offsets relative to the port base.
const (
	regData        = 0 // also divisor low byte when DLAB is set
	regIntEnable   = 1 // also divisor high byte when DLAB is set
	regFIFOControl = 2
	regLineControl = 3
	regModemCtrl   = 4
	regLineStatus  = 5
	regScratch     = 7
)

const (
	lineControlDLAB = 0x80
	lineControl8N1  = 0x03

	// Enable and clear FIFOs with a 14-byte threshold.
	fifoControlEnable = 0xc7

	// DTR, RTS and OUT2.
	modemControlReady = 0x0b

	// Transmitter holding register empty.
	lineStatusTHRE = 0x20

	// baseClock / baudDivisor = 38400 baud.
	baudDivisor = 3

	// maxSpins bounds the wait for the transmitter so that a missing or
	// wedged UART cannot hang the kernel.
	maxSpins = 1 << 16

	scratchProbeValue = 0xa5
)

// PortIO provides byte-wide access to the I/O port space.
type PortIO interface {
	PortWrite8(port uint16, value uint8)
	PortRead8(port uint16) uint8
}

var (
	// portIO is mocked by tests.
	portIO PortIO = cpu.Platform{}

	errNoPortIO = &kernel.Error{Module: "serial", Message: "no port I/O provider"}

	com1 UART

	com1Info = device.DriverInfo{
		Order: device.DetectOrderEarly,
		Probe: probeForCOM1,
	}
)

// UART is a 16550 compatible serial port. It implements io.Writer and
// device.Driver.
type UART struct {
	base uint16
	io   PortIO
}

// NewUART returns a UART for the port at base that performs I/O through pio.
func NewUART(base uint16, pio PortIO) *UART {
	return &UART{base: base, io: pio}
}

// Write transmits p, translating each '\n' into "\r\n". It always returns
// len(p) and a nil error.
func (u *UART) Write(p []byte) (int, error) {
	for _, ch := range p {
		if ch == '\n' {
			u.writeByte('\r')
		}
		u.writeByte(ch)
	}

	return len(p), nil
}

func (u *UART) writeByte(ch byte) {
	for spins := 0; spins < maxSpins && u.io.PortRead8(u.base+regLineStatus)&lineStatusTHRE == 0; spins++ {
	}

	u.io.PortWrite8(u.base+regData, ch)
}

// DriverName returns the name of this driver.
func (u *UART) DriverName() string {
	return "serial_16550"
}

// DriverVersion returns the version of this driver.
func (u *UART) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// DriverInit programs the UART for 38400 baud, 8 data bits, no parity and
// one stop bit with interrupts disabled.
func (u *UART) DriverInit(w io.Writer) *kernel.Error {
	if u.io == nil {
		return errNoPortIO
	}

	u.io.PortWrite8(u.base+regIntEnable, 0x00)
	u.io.PortWrite8(u.base+regLineControl, lineControlDLAB)
	u.io.PortWrite8(u.base+regData, baudDivisor&0xff)
	u.io.PortWrite8(u.base+regIntEnable, baudDivisor>>8)
	u.io.PortWrite8(u.base+regLineControl, lineControl8N1)
	u.io.PortWrite8(u.base+regFIFOControl, fifoControlEnable)
	u.io.PortWrite8(u.base+regModemCtrl, modemControlReady)

	kfmt.Fprintf(w, "port 0x%3x, 8N1\n", u.base)
	return nil
}

// probeForCOM1 checks for a UART at COM1 by round-tripping a value through
// its scratch register.
func probeForCOM1() device.Driver {
	portIO.PortWrite8(COM1+regScratch, scratchProbeValue)
	if portIO.PortRead8(COM1+regScratch) != scratchProbeValue {
		return nil
	}

	com1 = UART{base: COM1, io: portIO}
	return &com1
}

func init() {
	device.RegisterDriver(&com1Info)
}
