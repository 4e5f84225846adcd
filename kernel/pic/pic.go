// Package pic programs the pair of cascaded 8259 programmable interrupt
// controllers found on PC compatible machines.
package pic

// I/O port addresses for the two controllers.
const (
	MasterCommandPort uint16 = 0x20
	MasterDataPort    uint16 = 0x21
	SlaveCommandPort  uint16 = 0xa0
	SlaveDataPort     uint16 = 0xa1
)

// Command bytes.
const (
	// ICW1Init starts the initialization sequence in cascade mode and
	// announces that ICW4 will follow.
	ICW1Init uint8 = 0x11

	// ICW3Master tells the master that a slave is wired to line 2.
	ICW3Master uint8 = 0x04

	// ICW3Slave tells the slave its cascade identity.
	ICW3Slave uint8 = 0x02

	// ICW48086 selects 8086/88 mode.
	ICW48086 uint8 = 0x01

	// UnmaskAll is an OCW1 value that enables every line.
	UnmaskAll uint8 = 0x00

	// EOI is the non-specific end-of-interrupt command.
	EOI uint8 = 0x20
)

const (
	// LinesPerController is the number of IRQ lines per 8259.
	LinesPerController = 8

	// Lines is the total number of IRQ lines served by the pair.
	Lines = 2 * LinesPerController
)

// PortWriter is implemented by platforms that can write a byte to an I/O port.
type PortWriter interface {
	PortWrite8(port uint16, value uint8)
}

// Port is a handle to a single write-only I/O port.
type Port struct {
	Addr uint16
	w    PortWriter
}

// NewPort returns a handle for the port at addr that uses w for access.
func NewPort(addr uint16, w PortWriter) Port {
	return Port{Addr: addr, w: w}
}

// Write sends value to the port.
func (p Port) Write(value uint8) {
	p.w.PortWrite8(p.Addr, value)
}

// Pair models the master and slave controllers.
type Pair struct {
	MasterCommand Port
	MasterData    Port
	SlaveCommand  Port
	SlaveData     Port
}

// NewPair returns a Pair bound to the standard PC port addresses.
func NewPair(w PortWriter) Pair {
	return Pair{
		MasterCommand: NewPort(MasterCommandPort, w),
		MasterData:    NewPort(MasterDataPort, w),
		SlaveCommand:  NewPort(SlaveCommandPort, w),
		SlaveData:     NewPort(SlaveDataPort, w),
	}
}

// Remap runs the initialization sequence so that master lines raise vectors
// [offset, offset+8) and slave lines raise [offset+8, offset+16). All lines
// are left unmasked. Each initialization word must reach both controllers
// before the next one is sent.
func (p *Pair) Remap(offset uint8) {
	p.MasterCommand.Write(ICW1Init)
	p.SlaveCommand.Write(ICW1Init)

	p.MasterData.Write(offset)
	p.SlaveData.Write(offset + LinesPerController)

	p.MasterData.Write(ICW3Master)
	p.SlaveData.Write(ICW3Slave)

	p.MasterData.Write(ICW48086)
	p.SlaveData.Write(ICW48086)

	p.MasterData.Write(UnmaskAll)
	p.SlaveData.Write(UnmaskAll)
}

// Acknowledge signals the end of interrupt for the given line. Lines served
// by the slave are acknowledged on both controllers since the slave is
// cascaded through the master.
func (p *Pair) Acknowledge(line uint8) {
	p.MasterCommand.Write(EOI)
	if line >= LinesPerController {
		p.SlaveCommand.Write(EOI)
	}
}
