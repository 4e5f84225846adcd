// Package irq builds the interrupt descriptor table, programs the PICs and
// routes interrupts arriving through the trampolines to registered handlers.
package irq

import (
	"github.com/redknight990/sick-os-64/kernel"
	"github.com/redknight990/sick-os-64/kernel/gate"
	"github.com/redknight990/sick-os-64/kernel/kfmt"
	"github.com/redknight990/sick-os-64/kernel/pic"
)

// DefaultCodeSegment is the selector of the kernel code segment set up by
// the boot code (GDT entry 1, RPL 0).
const DefaultCodeSegment uint16 = 0x08

// maxHardwareOffset is the highest offset that still leaves room for all 16
// remapped IRQ vectors.
const maxHardwareOffset = gate.Entries - pic.Lines

var (
	ErrNoPlatform         = &kernel.Error{Module: "irq", Message: "no platform supplied"}
	ErrNoTrampolines      = &kernel.Error{Module: "irq", Message: "no trampoline table supplied"}
	ErrNoIgnoreTrampoline = &kernel.Error{Module: "irq", Message: "trampoline table has no address for the ignore trampoline"}
	ErrInvalidOffset      = &kernel.Error{Module: "irq", Message: "hardware interrupt offset must be in the range [0x20, 0xf0]"}
	ErrAlreadyInitialized = &kernel.Error{Module: "irq", Message: "interrupt manager already initialized"}
	ErrNotInitialized     = &kernel.Error{Module: "irq", Message: "interrupt manager not initialized"}
	ErrManagerTornDown    = &kernel.Error{Module: "irq", Message: "interrupt manager has been torn down"}

	errDispatchSlotBusy = &kernel.Error{Module: "irq", Message: "dispatch slot owned by another manager"}

	// panicFn is mocked by tests.
	panicFn = kfmt.Panic
)

// Platform is the set of privileged operations the interrupt manager needs.
type Platform interface {
	gate.Loader
	pic.PortWriter

	// SetInterruptsEnabled sets (true) or clears (false) RFLAGS.IF.
	SetInterruptsEnabled(enabled bool)
}

// Config describes how a Manager sets up interrupt handling.
type Config struct {
	// HardwareOffset is the vector that IRQ line 0 is remapped to. Lines
	// 0-15 occupy [HardwareOffset, HardwareOffset+16).
	HardwareOffset uint8

	// CodeSegment is the selector installed in every gate. If zero,
	// DefaultCodeSegment is used.
	CodeSegment uint16

	// Platform provides access to LIDT, RFLAGS.IF and port I/O.
	Platform Platform

	// Trampolines holds the entry stub addresses. The ignore trampoline
	// is mandatory; any other missing stub falls back to it.
	Trampolines *gate.TrampolineTable
}

type managerState uint8

const (
	stateUnbuilt managerState = iota
	stateIdle
	stateTornDown
)

// Manager owns an IDT, the PIC pair and the per-vector handler registry.
// Only one Manager can be active at any time; the active manager receives
// every interrupt delivered through Dispatch.
type Manager struct {
	state          managerState
	hardwareOffset uint8
	codeSegment    uint16

	table    gate.Table
	handlers [gate.Entries]Handler
	pics     pic.Pair
	platform Platform
}

// NewManager allocates a Manager and initializes it with cfg.
func NewManager(cfg Config) (*Manager, *kernel.Error) {
	m := new(Manager)
	if err := m.Init(cfg); err != nil {
		return nil, err
	}
	return m, nil
}

// Init builds the IDT, remaps the PICs and loads the table. All gates point
// to the ignore trampoline except for the CPU exceptions (0x00-0x13) and the
// first two IRQ lines which get their own trampolines. The handler registry
// starts out empty. The configuration is validated before any hardware is
// touched.
func (m *Manager) Init(cfg Config) *kernel.Error {
	switch {
	case m.state != stateUnbuilt:
		return ErrAlreadyInitialized
	case cfg.Platform == nil:
		return ErrNoPlatform
	case cfg.Trampolines == nil:
		return ErrNoTrampolines
	case cfg.Trampolines.Address(gate.TrampolineIgnore) == 0:
		return ErrNoIgnoreTrampoline
	case cfg.HardwareOffset < gate.FirstUserVector || cfg.HardwareOffset > maxHardwareOffset:
		return ErrInvalidOffset
	}

	m.hardwareOffset = cfg.HardwareOffset
	m.codeSegment = cfg.CodeSegment
	if m.codeSegment == 0 {
		m.codeSegment = DefaultCodeSegment
	}
	m.platform = cfg.Platform
	m.pics = pic.NewPair(cfg.Platform)

	var (
		trampolines = cfg.Trampolines
		ignoreAddr  = trampolines.Address(gate.TrampolineIgnore)
	)

	for i := 0; i < gate.Entries; i++ {
		m.setGate(uint8(i), ignoreAddr)
		m.handlers[i] = nil
	}

	for v := 0; v < gate.ExceptionCount; v++ {
		id, _ := gate.ExceptionTrampoline(gate.InterruptNumber(v))
		m.bindTrampoline(uint8(v), trampolines, id, ignoreAddr)
	}

	for line := uint8(0); line < gate.IRQTrampolineCount; line++ {
		id, _ := gate.IRQTrampoline(line)
		m.bindTrampoline(m.hardwareOffset+line, trampolines, id, ignoreAddr)
	}

	m.pics.Remap(m.hardwareOffset)
	m.table.Load(m.platform)
	m.state = stateIdle

	kfmt.Printf("[irq] IRQ 0-15 remapped to vectors 0x%2x-0x%2x; IDT loaded (cs = 0x%2x)\n",
		m.hardwareOffset, m.hardwareOffset+pic.Lines-1, m.codeSegment,
	)

	return nil
}

// bindTrampoline points vector at trampoline id, falling back to ignoreAddr
// if the kernel image does not provide the stub.
func (m *Manager) bindTrampoline(vector uint8, trampolines *gate.TrampolineTable, id gate.Trampoline, ignoreAddr uintptr) {
	addr := trampolines.Address(id)
	if addr == 0 {
		addr = ignoreAddr
	}
	m.setGate(vector, addr)
}

func (m *Manager) setGate(vector uint8, addr uintptr) {
	m.table.SetEntry(vector, addr, m.codeSegment, gate.AttrPrivilege0|gate.InterruptGate)
}

// SetInterruptHandler registers h for vector, replacing any previous
// handler. Passing a nil handler unregisters it. The manager does not take
// ownership of h; h must remain valid for as long as it is registered.
func (m *Manager) SetInterruptHandler(vector uint8, h Handler) {
	m.handlers[vector] = h
}

// InterruptHandler returns the handler registered for vector or nil.
func (m *Manager) InterruptHandler(vector uint8) Handler {
	return m.handlers[vector]
}

// HardwareOffset returns the vector that IRQ line 0 is mapped to.
func (m *Manager) HardwareOffset() uint8 {
	return m.hardwareOffset
}

// CodeSegment returns the selector installed in every gate.
func (m *Manager) CodeSegment() uint16 {
	return m.codeSegment
}

// Table returns the IDT owned by the manager.
func (m *Manager) Table() *gate.Table {
	return &m.table
}

// Activate makes m the manager that receives dispatched interrupts and
// enables interrupts. If another manager is active it is deactivated first.
// Activating the active manager again only re-enables interrupts.
func (m *Manager) Activate() *kernel.Error {
	switch m.state {
	case stateUnbuilt:
		return ErrNotInitialized
	case stateTornDown:
		return ErrManagerTornDown
	}

	if active != nil && active != m {
		active.Deactivate()
	}

	if err := m.claimSlot(); err != nil {
		return err
	}

	m.platform.SetInterruptsEnabled(true)
	return nil
}

// claimSlot makes m the owner of the dispatch slot. The slot must either be
// empty or already owned by m.
func (m *Manager) claimSlot() *kernel.Error {
	if active != nil && active != m {
		panicFn(errDispatchSlotBusy)
		return errDispatchSlotBusy
	}

	active = m
	return nil
}

// Deactivate disables interrupts and releases the dispatch slot if m is the
// active manager. It is a no-op otherwise.
func (m *Manager) Deactivate() {
	if active != m {
		return
	}

	active = nil
	m.platform.SetInterruptsEnabled(false)
}

// IsActive returns true if m currently receives dispatched interrupts.
func (m *Manager) IsActive() bool {
	return m != nil && active == m
}

// Teardown deactivates m and marks it as unusable. The IDT stays loaded; it
// is up to the caller to install a replacement before re-enabling
// interrupts.
func (m *Manager) Teardown() {
	m.Deactivate()
	m.state = stateTornDown
}
