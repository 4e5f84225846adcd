package main

import (
	"github.com/redknight990/sick-os-64/kernel/irq"
	"github.com/redknight990/sick-os-64/kernel/kmain"
)

var (
	multibootInfoPtr   uintptr
	trampolineTablePtr uintptr
)

// main makes a dummy call to the actual kernel main entrypoint function. It
// is intentionally defined to prevent the Go compiler from optimizing away the
// real kernel code.
//
// Global variables are passed as arguments to Kmain to prevent the compiler
// from inlining the actual call and removing Kmain from the generated .o file.
// The call to irq.Dispatch keeps the entry point used by the interrupt
// trampolines in the image.
func main() {
	kmain.Kmain(multibootInfoPtr, trampolineTablePtr)
	irq.Dispatch(0, 0)
}
