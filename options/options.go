// Package options holds the target/codegen flags spec.md §6 threads
// through every lowering decision: which SSE level is available, which
// register allocator runs, and whether sandboxing constraints apply.
package options

// OptLevel selects the register allocator: O2 hands off to an external
// linear-scan allocator (out of scope here, spec.md Non-goals), Om1 runs
// the in-tree last-use colourer (package om1).
type OptLevel int

const (
	O2 OptLevel = iota
	Om1
)

// SSELevel is the vector/FP instruction set the target may assume.
type SSELevel int

const (
	SSE2 SSELevel = iota
	SSE41
)

// Flags is the fully-resolved configuration for one compilation unit,
// grounded on spec.md §6's -mattr / -O / --sandboxed surface.
type Flags struct {
	SSE        SSELevel
	Opt        OptLevel
	Sandboxed  bool // PNaCl-style SFI: selects the gs:0 thread-pointer read over the __nacl_read_tp call
	Verbose    bool
}

func Default() Flags {
	return Flags{SSE: SSE2, Opt: Om1}
}

func (f Flags) HasSSE41() bool { return f.SSE == SSE41 }
