package irq

import "github.com/redknight990/sick-os-64/kernel/pic"

// active is the dispatch slot. It holds the manager that Dispatch routes
// interrupts to and is only modified by Activate and Deactivate.
var active *Manager

// Active returns the manager that currently owns the dispatch slot or nil.
func Active() *Manager {
	return active
}

// Dispatch is the entry point called by every trampoline with the stack
// pointer of the interrupted context and the vector number. It returns the
// stack pointer that the trampoline must resume with. Interrupts that arrive
// while no manager is active are dropped.
func Dispatch(rsp uint64, vector uint8) uint64 {
	if active == nil {
		return rsp
	}

	return active.dispatch(rsp, vector)
}

// dispatch invokes the handler registered for vector (if any) and then sends
// an EOI to the PICs if vector is a remapped hardware IRQ.
func (m *Manager) dispatch(rsp uint64, vector uint8) uint64 {
	if h := m.handlers[vector]; h != nil {
		rsp = h.HandleInterrupt(rsp)
	}

	if line, isIRQ := m.irqLine(vector); isIRQ {
		m.pics.Acknowledge(line)
	}

	return rsp
}

// irqLine maps vector to a PIC line if it falls in the remapped IRQ range.
func (m *Manager) irqLine(vector uint8) (uint8, bool) {
	if vector < m.hardwareOffset || uint16(vector) >= uint16(m.hardwareOffset)+pic.Lines {
		return 0, false
	}

	return vector - m.hardwareOffset, true
}
