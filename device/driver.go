// Package device defines the interface shared by all device drivers and a
// registry that the kernel uses to probe for hardware.
package device

import (
	"io"

	"github.com/redknight990/sick-os-64/kernel"
)

// Driver is an interface implemented by all drivers.
type Driver interface {
	// DriverName returns the name of the driver.
	DriverName() string

	// DriverVersion returns the driver version.
	DriverVersion() (major uint16, minor uint16, patch uint16)

	// DriverInit initializes the device driver. If the driver init code
	// needs to log some output, it can use the supplied io.Writer in
	// conjunction with a call to kfmt.Fprintf.
	DriverInit(io.Writer) *kernel.Error
}

// ProbeFn is a function that scans for the presence of a particular
// piece of hardware and returns a driver for it. It returns nil if the
// hardware is not present.
type ProbeFn func() Driver

// DetectOrder specifies when each driver's probe function will be invoked
// by the kernel. Lower values run first.
type DetectOrder int8

const (
	// DetectOrderEarly is used by drivers that need to be available before
	// anything else (e.g. the console used for logging).
	DetectOrderEarly DetectOrder = -128

	// DetectOrderNormal is the default order for drivers.
	DetectOrderNormal DetectOrder = 0

	// DetectOrderLast is used by drivers that depend on other drivers.
	DetectOrderLast DetectOrder = 127
)

// DriverInfo describes a driver that can be probed by the kernel.
type DriverInfo struct {
	// Order specifies at which stage the probe function is invoked.
	Order DetectOrder

	// Probe checks for the presence of the hardware.
	Probe ProbeFn
}

// DriverInfoList is a list of registered drivers that implements
// sort.Interface.
type DriverInfoList []*DriverInfo

// Len returns the length of the driver info list.
func (l DriverInfoList) Len() int { return len(l) }

// Swap exchanges 2 elements in the driver info list.
func (l DriverInfoList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }

// Less compares 2 elements of the driver info list.
func (l DriverInfoList) Less(i, j int) bool { return l[i].Order < l[j].Order }

// maxDrivers is the capacity of the driver registry.
const maxDrivers = 16

var (
	// registeredDrivers is a fixed array so that registration works before
	// a memory allocator is available.
	registeredDrivers   [maxDrivers]*DriverInfo
	registeredDriverCnt int

	errRegistryFull = &kernel.Error{Module: "device", Message: "driver registry is full"}
)

// RegisterDriver adds the supplied driver info object to the list of
// drivers that will be probed by the kernel.
func RegisterDriver(info *DriverInfo) *kernel.Error {
	if registeredDriverCnt == maxDrivers {
		return errRegistryFull
	}

	registeredDrivers[registeredDriverCnt] = info
	registeredDriverCnt++
	return nil
}

// DriverList returns the list of registered drivers.
func DriverList() DriverInfoList {
	return DriverInfoList(registeredDrivers[:registeredDriverCnt])
}
