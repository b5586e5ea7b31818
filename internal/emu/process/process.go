package process

import (
	"github.com/orizon-lang/orizon-emu/internal/emu/timestamp"
	orizonerr "github.com/orizon-lang/orizon-emu/internal/errors"
)

// State is a process's scheduling/execution state (spec.md §3).
type State int

const (
	Ready State = iota
	Running
	Sleeping
	Blocked
	Finished
	Terminated
)

func (s State) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Sleeping:
		return "Sleeping"
	case Blocked:
		return "Blocked"
	case Finished:
		return "Finished"
	case Terminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// LogEntry is one append-only process log line (spec.md §6).
type LogEntry struct {
	Timestamp string
	CoreID    int
	Message   string
}

// TerminationInfo records why and when a process was terminated by a memory
// access violation (spec.md §3).
type TerminationInfo struct {
	Timestamp string
	Address   uint32
	Err       *orizonerr.StandardError
}

// Process is one schedulable unit of execution (spec.md §3). Its page table
// lives in the memory manager, keyed by PID, rather than on this struct --
// see DESIGN.md for why (pid-as-shared-key, spec.md §9).
type Process struct {
	PID               uint64
	Name              string
	CreationTimestamp string
	CoreID            int // -1 if unassigned
	State             State
	Instructions      []Instr
	PC                int
	DelayCounter      int
	Symbols           *SymbolTable
	MemoryRequired    uint32
	PageCount         int
	Logs              []LogEntry
	Termination       *TerminationInfo
}

// New constructs a process ready for submission. frameSize is used only to
// size PageCount (spec.md §3: page_count = ceil(memory_required/frame_size)).
func New(pid uint64, name string, instructions []Instr, memoryRequired uint32, frameSize uint32) *Process {
	pageCount := int((memoryRequired + frameSize - 1) / frameSize)
	return &Process{
		PID:               pid,
		Name:              name,
		CreationTimestamp: timestamp.Now(),
		CoreID:            -1,
		State:             Ready,
		Instructions:      instructions,
		Symbols:           newSymbolTable(memoryRequired >= 64),
		MemoryRequired:    memoryRequired,
		PageCount:         pageCount,
	}
}

// IsDone reports whether the process will never be dispatched again.
func (p *Process) IsDone() bool {
	return p.State == Finished || p.State == Terminated
}

func (p *Process) log(coreID int, message string) {
	p.Logs = append(p.Logs, LogEntry{Timestamp: timestamp.Now(), CoreID: coreID, Message: message})
}

func (p *Process) resolve(op Operand) uint16 {
	if op.Kind == OperandImmediate {
		return op.Literal
	}
	return p.Symbols.Get(op.Name)
}

func saturatingAdd(a, b uint16) uint16 {
	sum := uint32(a) + uint32(b)
	if sum > 0xFFFF {
		return 0xFFFF
	}
	return uint16(sum)
}

func saturatingSub(a, b uint16) uint16 {
	if b > a {
		return 0
	}
	return a - b
}
