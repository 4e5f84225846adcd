package gate

import (
	"encoding/binary"
	"unsafe"

	"github.com/redknight990/sick-os-64/kernel"
)

const (
	// Entries is the number of gates in the IDT; one for each 8-bit
	// interrupt vector.
	Entries = 256

	// TableSize is the size in bytes of a fully populated IDT.
	TableSize = Entries * DescriptorSize

	// TableLimit is the value loaded into the limit field of the IDTR.
	TableLimit = TableSize - 1

	// PseudoDescriptorSize is the size in bytes of the LIDT operand.
	PseudoDescriptorSize = 10
)

// Loader is implemented by platforms that can install an IDT. The limit is
// the table size in bytes minus one.
type Loader interface {
	LoadInterruptTable(base uintptr, limit uint16)
}

// Table is an interrupt descriptor table indexed by vector number. Entries
// are stored in their packed in-memory form as pairs of quad words which also
// keeps the table 8-byte aligned. A zero Table has every gate non-present.
type Table struct {
	entries [Entries][2]uint64
}

// SetEntry overwrites the gate for vector index so that it points to
// handlerAddr. The present bit is always set in addition to typeAttr.
func (t *Table) SetEntry(index uint8, handlerAddr uintptr, selector uint16, typeAttr uint8) {
	t.entries[index] = NewDescriptor(uint64(handlerAddr), selector, AttrPresent|typeAttr).words()
}

// Entry returns the decoded gate for vector index.
func (t *Table) Entry(index uint8) Descriptor {
	return descriptorFromWords(t.entries[index])
}

// Base returns the linear address of the first table entry.
func (t *Table) Base() uintptr {
	return uintptr(unsafe.Pointer(&t.entries[0]))
}

// Load installs the table using the supplied loader. The CPU gives no
// feedback for a malformed IDTR so loaders must encode it as described by
// PseudoDescriptor.Pack.
func (t *Table) Load(l Loader) {
	l.LoadInterruptTable(t.Base(), TableLimit)
}

// PseudoDescriptor is the operand of the LIDT instruction.
type PseudoDescriptor struct {
	// Limit is the table size in bytes minus one.
	Limit uint16

	// Base is the linear address of the table.
	Base uint64
}

// Pack returns the 10-byte LIDT operand: a little-endian 16-bit limit
// immediately followed by the little-endian 64-bit base with no padding.
func (p PseudoDescriptor) Pack() [PseudoDescriptorSize]byte {
	var out [PseudoDescriptorSize]byte
	binary.LittleEndian.PutUint16(out[0:2], p.Limit)
	binary.LittleEndian.PutUint64(out[2:10], p.Base)
	return out
}

// UnpackTable decodes a raw IDT image such as a physical memory dump taken
// from a running system. Only the first TableSize bytes of b are examined.
func UnpackTable(b []byte) ([]Descriptor, *kernel.Error) {
	if len(b) < TableSize {
		return nil, errShortTableImage
	}

	out := make([]Descriptor, Entries)
	for i := range out {
		d, err := Unpack(b[i*DescriptorSize:])
		if err != nil {
			return nil, err
		}
		out[i] = d
	}

	return out, nil
}
