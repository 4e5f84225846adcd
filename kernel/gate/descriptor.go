package gate

import (
	"encoding/binary"

	"github.com/redknight990/sick-os-64/kernel"
)

// DescriptorSize is the size in bytes of a single 64-bit mode gate descriptor.
const DescriptorSize = 16

// Type and attribute bits for the typeAttr byte of a gate descriptor.
const (
	// AttrPresent marks the gate as present. The CPU raises a #NP fault
	// when an interrupt arrives for a gate without this bit.
	AttrPresent uint8 = 1 << 7

	// AttrPrivilege0 and AttrPrivilege3 select the descriptor privilege
	// level (DPL) required for software to invoke the gate via INT n.
	AttrPrivilege0 uint8 = 0 << 5
	AttrPrivilege3 uint8 = 3 << 5

	// InterruptGate clears RFLAGS.IF on entry; TrapGate leaves it alone.
	InterruptGate uint8 = 0x0e
	TrapGate      uint8 = 0x0f

	dplShift = 5
	dplMask  = 3 << dplShift
	typeMask = 0x0f
)

var (
	errShortDescriptor = &kernel.Error{Module: "gate", Message: "descriptor data is shorter than 16 bytes"}
	errReservedBitsSet = &kernel.Error{Module: "gate", Message: "descriptor has non-zero reserved bits"}
	errShortTableImage = &kernel.Error{Module: "gate", Message: "table image is shorter than 4096 bytes"}
)

// Descriptor is the decoded form of an IDT gate descriptor. The 64-bit
// handler address is split into three fields because that is how the CPU
// lays it out in memory. The zero value is a non-present gate.
type Descriptor struct {
	lowBase  uint16
	selector uint16
	typeAttr uint8
	midBase  uint16
	highBase uint32
}

// NewDescriptor encodes a gate pointing at address. Any 64-bit address is
// representable; selector and typeAttr are stored verbatim.
func NewDescriptor(address uint64, selector uint16, typeAttr uint8) Descriptor {
	return Descriptor{
		lowBase:  uint16(address & 0xffff),
		selector: selector,
		typeAttr: typeAttr,
		midBase:  uint16((address >> 16) & 0xffff),
		highBase: uint32((address >> 32) & 0xffffffff),
	}
}

// Base returns the handler address encoded in the descriptor.
func (d Descriptor) Base() uint64 {
	return uint64(d.highBase)<<32 | uint64(d.midBase)<<16 | uint64(d.lowBase)
}

// Selector returns the code segment selector used when entering the handler.
func (d Descriptor) Selector() uint16 {
	return d.selector
}

// TypeAttributes returns the raw type/attribute byte.
func (d Descriptor) TypeAttributes() uint8 {
	return d.typeAttr
}

// Present returns true if the gate is marked as present.
func (d Descriptor) Present() bool {
	return d.typeAttr&AttrPresent != 0
}

// PrivilegeLevel returns the DPL (0-3) of the gate.
func (d Descriptor) PrivilegeLevel() uint8 {
	return (d.typeAttr & dplMask) >> dplShift
}

// GateType returns the 4-bit gate type (InterruptGate or TrapGate for a
// well-formed 64-bit gate).
func (d Descriptor) GateType() uint8 {
	return d.typeAttr & typeMask
}

// words returns the two little-endian quad words that make up the in-memory
// representation of the descriptor:
//
//	word 0: bits  0-15 low address, 16-31 selector, 32-39 reserved (IST),
//	        40-47 type/attr, 48-63 mid address
//	word 1: bits  0-31 high address, 32-63 reserved
func (d Descriptor) words() [2]uint64 {
	return [2]uint64{
		uint64(d.lowBase) |
			uint64(d.selector)<<16 |
			uint64(d.typeAttr)<<40 |
			uint64(d.midBase)<<48,
		uint64(d.highBase),
	}
}

// descriptorFromWords is the inverse of words. Reserved bits are dropped.
func descriptorFromWords(w [2]uint64) Descriptor {
	return Descriptor{
		lowBase:  uint16(w[0]),
		selector: uint16(w[0] >> 16),
		typeAttr: uint8(w[0] >> 40),
		midBase:  uint16(w[0] >> 48),
		highBase: uint32(w[1]),
	}
}

// Pack returns the 16-byte encoding consumed by the CPU: bytes 0-1 low
// address, 2-3 selector, 4 reserved, 5 type/attr, 6-7 mid address, 8-11
// high address and 12-15 reserved. All multi-byte fields are little-endian.
func (d Descriptor) Pack() [DescriptorSize]byte {
	var (
		out [DescriptorSize]byte
		w   = d.words()
	)

	binary.LittleEndian.PutUint64(out[0:8], w[0])
	binary.LittleEndian.PutUint64(out[8:16], w[1])
	return out
}

// Unpack decodes a descriptor from the first 16 bytes of b. It fails if b is
// too short or if any of the reserved bytes is non-zero.
func Unpack(b []byte) (Descriptor, *kernel.Error) {
	if len(b) < DescriptorSize {
		return Descriptor{}, errShortDescriptor
	}

	if b[4] != 0 || binary.LittleEndian.Uint32(b[12:16]) != 0 {
		return Descriptor{}, errReservedBitsSet
	}

	return descriptorFromWords([2]uint64{
		binary.LittleEndian.Uint64(b[0:8]),
		binary.LittleEndian.Uint64(b[8:16]),
	}), nil
}
