package kernel

// Error describes a kernel error. Kernel errors are declared as package-level
// pointers to Error values so that reporting them never requires the Go
// allocator, which may not be available when interrupts are being set up.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}
