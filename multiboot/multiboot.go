// Package multiboot provides access to the multiboot2 information structure
// that the boot loader hands over to the kernel.
package multiboot

import "unsafe"

var infoData uintptr

type tagType uint32

// nolint
const (
	tagMbSectionEnd tagType = iota
	tagBootCmdLine
	tagBootLoaderName
	tagModules
	tagBasicMemoryInfo
	tagBiosBootDevice
	tagMemoryMap
	tagVbeInfo
	tagFramebufferInfo
	tagElfSymbols
	tagApmTable
)

// info describes the multiboot info section header.
type info struct {
	// Total size of multiboot info section.
	totalSize uint32

	// Always set to zero; reserved for future use
	reserved uint32
}

// tagHeader describes the header the precedes each tag.
type tagHeader struct {
	// The type of the tag
	tagType tagType

	// The size of the tag including the header but *not* including any
	// padding. Each tag starts at an 8-byte aligned address.
	size uint32
}

// CmdLineVisitor is invoked by VisitBootCmdLine for each argument passed to
// the kernel. Arguments without a value (e.g. "quiet") are reported with
// value equal to key. The visitor must return true to continue or false to
// abort the scan.
type CmdLineVisitor func(key, value string) bool

// SetInfoPtr updates the internal multiboot information pointer to the given
// value. This function must be invoked before invoking any other function
// exported by this package.
func SetInfoPtr(ptr uintptr) {
	infoData = ptr
}

// VisitBootCmdLine splits the kernel command line into whitespace-separated
// key=value pairs and invokes visitor for each one. The strings passed to the
// visitor point into the multiboot info data so no memory gets allocated.
func VisitBootCmdLine(visitor CmdLineVisitor) {
	cmdLine := cString(findTagByType(tagBootCmdLine))

	for start := 0; start < len(cmdLine); {
		for start < len(cmdLine) && isSpace(cmdLine[start]) {
			start++
		}

		end := start
		for end < len(cmdLine) && !isSpace(cmdLine[end]) {
			end++
		}

		if end == start {
			return
		}

		if key, value, ok := splitPair(cmdLine[start:end]); ok && !visitor(key, value) {
			return
		}

		start = end
	}
}

// GetBootCmdLine returns the command line key-value pairs passed to the
// kernel. This function allocates and must only be invoked when the Go
// allocator is available.
func GetBootCmdLine() map[string]string {
	kv := make(map[string]string)
	VisitBootCmdLine(func(key, value string) bool {
		kv[key] = value
		return true
	})

	return kv
}

// GetBootLoaderName returns the name of the boot loader that loaded the
// kernel or an empty string if the boot loader did not provide one.
func GetBootLoaderName() string {
	return cString(findTagByType(tagBootLoaderName))
}

// splitPair splits a "key=value" or "key" argument. Arguments containing more
// than one '=' are rejected.
func splitPair(arg string) (string, string, bool) {
	sep := -1
	for i := 0; i < len(arg); i++ {
		if arg[i] != '=' {
			continue
		}

		if sep != -1 {
			return "", "", false
		}
		sep = i
	}

	if sep == -1 {
		return arg, arg, true
	}

	return arg[:sep], arg[sep+1:], true
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

// cString returns a string that overlays the NULL-terminated string stored
// at ptr. The size argument includes the terminator.
func cString(ptr uintptr, size uint32) string {
	if size == 0 {
		return ""
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), size)
	n := 0
	for n < len(data) && data[n] != 0 {
		n++
	}

	return unsafe.String((*byte)(unsafe.Pointer(ptr)), n)
}

// findTagByType scans the multiboot info data looking for the start of of the
// specified type. It returns a pointer to the tag contents start offset and
// the content length excluding the tag header.
//
// If the tag is not present in the multiboot info, findTagByType will return
// back (0,0).
func findTagByType(tagType tagType) (uintptr, uint32) {
	if infoData == 0 {
		return 0, 0
	}

	var ptrTagHeader *tagHeader

	curPtr := infoData + unsafe.Sizeof(info{})
	for ptrTagHeader = (*tagHeader)(unsafe.Pointer(curPtr)); ptrTagHeader.tagType != tagMbSectionEnd; ptrTagHeader = (*tagHeader)(unsafe.Pointer(curPtr)) {
		if ptrTagHeader.tagType == tagType {
			return curPtr + 8, ptrTagHeader.size - 8
		}

		// Tags are aligned at 8-byte aligned addresses
		curPtr += uintptr(int32(ptrTagHeader.size+7) & ^7)
	}

	return 0, 0
}
