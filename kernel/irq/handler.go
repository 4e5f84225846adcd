package irq

// Handler services interrupts for a vector. HandleInterrupt receives the
// stack pointer of the interrupted context as saved by the trampoline and
// returns the stack pointer that the trampoline should resume with. Handlers
// that do not switch stacks must return rsp unchanged.
type Handler interface {
	HandleInterrupt(rsp uint64) uint64
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(rsp uint64) uint64

// HandleInterrupt calls f(rsp).
func (f HandlerFunc) HandleInterrupt(rsp uint64) uint64 {
	return f(rsp)
}

// PassThrough is a Handler that does nothing.
type PassThrough struct{}

// HandleInterrupt returns rsp unchanged.
func (PassThrough) HandleInterrupt(rsp uint64) uint64 {
	return rsp
}
