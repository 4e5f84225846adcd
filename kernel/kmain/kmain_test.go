package kmain

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
	"unsafe"

	"github.com/redknight990/sick-os-64/device"
	"github.com/redknight990/sick-os-64/kernel"
	"github.com/redknight990/sick-os-64/kernel/gate"
	"github.com/redknight990/sick-os-64/kernel/irq"
	"github.com/redknight990/sick-os-64/kernel/kfmt"
	"github.com/redknight990/sick-os-64/multiboot"
)

type platformMock struct {
	loadCount int
	ifState   bool
}

func (p *platformMock) LoadInterruptTable(uintptr, uint16) { p.loadCount++ }
func (p *platformMock) SetInterruptsEnabled(enabled bool) { p.ifState = enabled }
func (p *platformMock) PortWrite8(uint16, uint8) {}

// consoleDriver is a fake driver that captures console output.
type consoleDriver struct {
	bytes.Buffer
	initErr *kernel.Error
}

func (d *consoleDriver) DriverName() string { return "fakecon" }
func (d *consoleDriver) DriverVersion() (uint16, uint16, uint16) { return 1, 2, 3 }
func (d *consoleDriver) DriverInit(w io.Writer) *kernel.Error {
	if d.initErr != nil {
		return d.initErr
	}
	kfmt.Fprintf(w, "ready\n")
	return nil
}

// testInfo keeps the multiboot image built by multibootInfo reachable.
var testInfo []uint64

// multibootInfo builds a multiboot2 info image with a command line tag.
func multibootInfo(cmdLine string) uintptr {
	payload := append([]byte(cmdLine), 0)
	size := 8 + 8 + len(payload)
	size = (size + 7) &^ 7
	size += 8 // end tag

	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:], uint32(size))
	binary.LittleEndian.PutUint32(buf[8:], 1)
	binary.LittleEndian.PutUint32(buf[12:], uint32(8+len(payload)))
	copy(buf[16:], payload)

	testInfo = make([]uint64, size/8)
	for i := range testInfo {
		testInfo[i] = binary.LittleEndian.Uint64(buf[i*8:])
	}

	return uintptr(unsafe.Pointer(&testInfo[0]))
}

func mockTrampolines() *gate.TrampolineTable {
	var tt gate.TrampolineTable
	for i := range tt {
		tt[i] = 0xffff800000100000 + uint64(i)*0x10
	}
	return &tt
}

// resetKmain restores the package state mutated by Kmain.
func resetKmain() {
	manager.Teardown()
	manager = irq.Manager{}
	hasSink = false
	kfmt.SetOutputSink(nil)
	multiboot.SetInfoPtr(0)
}

func TestKmain(t *testing.T) {
	defer func(origPlatform irq.Platform, origPanic func(interface{}), origIdle func(), origDrivers func() device.DriverInfoList) {
		platform = origPlatform
		panicFn = origPanic
		idleFn = origIdle
		driverListFn = origDrivers
		resetKmain()
	}(platform, panicFn, idleFn, driverListFn)

	var (
		p          platformMock
		con        consoleDriver
		idleCalled bool
		panicErr   interface{}
	)

	platform = &p
	panicFn = func(e interface{}) { panicErr = e }
	driverListFn = func() device.DriverInfoList {
		return device.DriverInfoList{
			{Order: device.DetectOrderLast, Probe: func() device.Driver { return nil }},
			{Order: device.DetectOrderEarly, Probe: func() device.Driver { return &con }},
		}
	}
	idleFn = func() {
		idleCalled = true
		if !manager.IsActive() || irq.Active() != &manager {
			t.Error("expected the manager to be active while idling")
		}
	}

	tt := mockTrampolines()
	Kmain(multibootInfo("irqOffset=0x28 kernelCS=0x10"), uintptr(unsafe.Pointer(tt)))

	if panicErr != errKmainReturned {
		t.Fatalf("expected Kmain to panic with errKmainReturned; got %v", panicErr)
	}

	if !idleCalled {
		t.Fatal("expected Kmain to idle")
	}

	if got := manager.HardwareOffset(); got != 0x28 {
		t.Errorf("expected hardware offset 0x28; got 0x%x", got)
	}

	if got := manager.CodeSegment(); got != 0x10 {
		t.Errorf("expected code segment 0x10; got 0x%x", got)
	}

	if p.loadCount != 1 || !p.ifState {
		t.Errorf("expected the table to be loaded once and interrupts enabled; loads: %d, IF: %t", p.loadCount, p.ifState)
	}

	for v := 0; v < gate.ExceptionCount; v++ {
		h, ok := manager.InterruptHandler(uint8(v)).(*faultReporter)
		if !ok || h.vector != gate.InterruptNumber(v) {
			t.Errorf("[vector 0x%x] expected fault reporter to be registered", v)
		}
	}

	if manager.InterruptHandler(0x28) != nil {
		t.Error("expected no handler for IRQ vectors")
	}

	out := con.String()
	for _, exp := range []string{
		"[fakecon] ready\n",
		"[kmain] loaded driver fakecon (v1.2.3)\n",
		"[kmain] interrupts enabled\n",
	} {
		if !bytes.Contains([]byte(out), []byte(exp)) {
			t.Errorf("expected console output to contain %q; got:\n%s", exp, out)
		}
	}
}

func TestKmainWithoutTrampolines(t *testing.T) {
	defer func(origPlatform irq.Platform, origPanic func(interface{}), origIdle func(), origDrivers func() device.DriverInfoList) {
		platform = origPlatform
		panicFn = origPanic
		idleFn = origIdle
		driverListFn = origDrivers
		resetKmain()
	}(platform, panicFn, idleFn, driverListFn)

	var (
		p        platformMock
		panicErr interface{}
	)

	platform = &p
	panicFn = func(e interface{}) { panicErr = e }
	idleFn = func() { t.Error("expected Kmain not to idle") }
	driverListFn = func() device.DriverInfoList { return nil }

	Kmain(multibootInfo(""), 0)

	if panicErr != irq.ErrNoTrampolines {
		t.Fatalf("expected panic with irq.ErrNoTrampolines; got %v", panicErr)
	}

	if p.loadCount != 0 || p.ifState {
		t.Fatal("expected no hardware changes")
	}
}

func TestProbeDriversInitFailure(t *testing.T) {
	defer func(origDrivers func() device.DriverInfoList) {
		driverListFn = origDrivers
		resetKmain()
	}(driverListFn)

	var (
		failing = consoleDriver{initErr: &kernel.Error{Module: "fakecon", Message: "no hardware"}}
		working consoleDriver
	)

	driverListFn = func() device.DriverInfoList {
		return device.DriverInfoList{
			{Order: device.DetectOrderEarly, Probe: func() device.Driver { return &failing }},
			{Order: device.DetectOrderNormal, Probe: func() device.Driver { return &working }},
		}
	}

	probeDrivers()

	if kfmt.GetOutputSink() != io.Writer(&working) {
		t.Fatal("expected the first successfully initialized writer to become the output sink")
	}

	if exp := "[kmain] fakecon init failed: no hardware\n"; !bytes.Contains(working.Bytes(), []byte(exp)) {
		t.Fatalf("expected buffered output to contain %q; got %q", exp, working.String())
	}

	if failing.Len() != 0 {
		t.Fatalf("expected no output to reach the failed driver; got %q", failing.String())
	}
}

func TestFaultReporter(t *testing.T) {
	defer func(origPanic func(interface{})) {
		panicFn = origPanic
		kfmt.SetOutputSink(nil)
	}(panicFn)

	var (
		panicErr interface{}
		out      bytes.Buffer
	)
	panicFn = func(e interface{}) { panicErr = e }
	kfmt.SetOutputSink(&out)

	specs := []struct {
		vector    gate.InterruptNumber
		expPanic  bool
		expOutput string
	}{
		{gate.Breakpoint, false, "[kmain] CPU exception 0x03 (breakpoint), rsp = 0x0000000000007ff0\n"},
		{gate.GPFException, true, "[kmain] CPU exception 0x0d (general-protection-fault), rsp = 0x0000000000007ff0\n"},
		{gate.PageFaultException, true, "[kmain] CPU exception 0x0e (page-fault), rsp = 0x0000000000007ff0\n"},
	}

	for specIndex, spec := range specs {
		panicErr = nil
		out.Reset()

		r := faultReporter{vector: spec.vector}
		if got := r.HandleInterrupt(0x7ff0); got != 0x7ff0 {
			t.Errorf("[spec %d] expected rsp to be returned unchanged; got 0x%x", specIndex, got)
		}

		if gotPanic := panicErr == errUnhandledException; gotPanic != spec.expPanic {
			t.Errorf("[spec %d] expected panic: %t; got %v", specIndex, spec.expPanic, panicErr)
		}

		if got := out.String(); got != spec.expOutput {
			t.Errorf("[spec %d] expected output %q; got %q", specIndex, spec.expOutput, got)
		}
	}
}

func TestDriverPrefix(t *testing.T) {
	specs := []struct {
		name string
		exp  string
	}{
		{"", "[] "},
		{"serial_16550", "[serial_16550] "},
		{"a_driver_with_a_very_long_name_indeed", "[a_driver_with_a_very_long_nam] "},
	}

	for specIndex, spec := range specs {
		if got := string(driverPrefix(spec.name)); got != spec.exp {
			t.Errorf("[spec %d] expected prefix %q; got %q", specIndex, spec.exp, got)
		}
	}
}
