package kmain

import (
	"io"
	"sort"

	"github.com/redknight990/sick-os-64/device"
	_ "github.com/redknight990/sick-os-64/device/serial"
	"github.com/redknight990/sick-os-64/kernel"
	"github.com/redknight990/sick-os-64/kernel/cpu"
	"github.com/redknight990/sick-os-64/kernel/gate"
	"github.com/redknight990/sick-os-64/kernel/irq"
	"github.com/redknight990/sick-os-64/kernel/kfmt"
	"github.com/redknight990/sick-os-64/multiboot"
)

var (
	errKmainReturned      = &kernel.Error{Module: "kmain", Message: "Kmain returned"}
	errUnhandledException = &kernel.Error{Module: "kmain", Message: "unhandled CPU exception"}

	// The following functions and values are mocked by tests.
	platform irq.Platform = cpu.Platform{}
	panicFn               = kfmt.Panic
	idleFn                = idle
	driverListFn          = device.DriverList

	// The interrupt manager and its handlers are statically allocated.
	manager irq.Manager

	faultReporters [gate.ExceptionCount]faultReporter

	driverLog       kfmt.PrefixWriter
	driverPrefixBuf [32]byte
	hasSink         bool
)

// Kmain is the only Go symbol that is visible (exported) from the rt0
// initialization code. This function is invoked by the rt0 assembly code
// after setting up the GDT and a minimal g0 struct that allows Go code to
// use the 4K stack allocated by the assembly code.
//
// The rt0 code passes the address of the multiboot info payload provided by
// the bootloader and the address of the table holding the entry points of
// the interrupt trampolines.
//
// Kmain is not expected to return. If it does, the rt0 code will halt the CPU.
//
//go:noinline
func Kmain(multibootInfoPtr, trampolineTablePtr uintptr) {
	multiboot.SetInfoPtr(multibootInfoPtr)

	probeDrivers()

	if name := multiboot.GetBootLoaderName(); name != "" {
		kfmt.Printf("[kmain] booted by %s\n", name)
	}

	cfg := bootConfig()
	cfg.Platform = platform
	if trampolineTablePtr != 0 {
		cfg.Trampolines = gate.TrampolineTableAt(trampolineTablePtr)
	}

	if err := manager.Init(cfg); err != nil {
		panicFn(err)
		return
	}

	for v := 0; v < gate.ExceptionCount; v++ {
		faultReporters[v].vector = gate.InterruptNumber(v)
		manager.SetInterruptHandler(uint8(v), &faultReporters[v])
	}

	if err := manager.Activate(); err != nil {
		panicFn(err)
		return
	}

	kfmt.Printf("[kmain] interrupts enabled\n")
	idleFn()

	// Use panicFn instead of panic to prevent the compiler from treating
	// kfmt.Panic as dead-code and eliminating it.
	panicFn(errKmainReturned)
}

// idle services interrupts forever.
func idle() {
	for {
		cpu.WaitForInterrupt()
	}
}

// probeDrivers runs the probe function of each registered driver in
// detection order and initializes the drivers it finds. The first driver that
// implements io.Writer becomes the kfmt output sink.
func probeDrivers() {
	drivers := driverListFn()
	sort.Sort(drivers)

	for _, info := range drivers {
		drv := info.Probe()
		if drv == nil {
			continue
		}

		driverLog = kfmt.PrefixWriter{
			Sink:   kfmt.GetOutputSink(),
			Prefix: driverPrefix(drv.DriverName()),
		}
		if err := drv.DriverInit(&driverLog); err != nil {
			kfmt.Printf("[kmain] %s init failed: %s\n", drv.DriverName(), err.Message)
			continue
		}

		if w, ok := drv.(io.Writer); ok && !hasSink {
			kfmt.SetOutputSink(w)
			hasSink = true
		}

		major, minor, patch := drv.DriverVersion()
		kfmt.Printf("[kmain] loaded driver %s (v%d.%d.%d)\n", drv.DriverName(), major, minor, patch)
	}
}

// driverPrefix formats "[name] " into a static buffer, truncating long names.
func driverPrefix(name string) []byte {
	buf := driverPrefixBuf[:0]
	buf = append(buf, '[')
	if limit := cap(buf) - 3; len(name) > limit {
		name = name[:limit]
	}
	buf = append(buf, name...)
	return append(buf, ']', ' ')
}

// faultReporter handles CPU exceptions that nothing else claims. Breakpoints
// are logged and execution resumes; every other exception is fatal.
type faultReporter struct {
	vector gate.InterruptNumber
}

func (r *faultReporter) HandleInterrupt(rsp uint64) uint64 {
	kfmt.Printf("[kmain] CPU exception 0x%2x (%s), rsp = 0x%16x\n", uint8(r.vector), r.vector.Name(), rsp)

	if r.vector != gate.Breakpoint {
		panicFn(errUnhandledException)
	}

	return rsp
}
