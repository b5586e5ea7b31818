package process

import (
	"fmt"
	"strings"

	"github.com/orizon-lang/orizon-emu/internal/emu/memory"
	"github.com/orizon-lang/orizon-emu/internal/emu/timestamp"
	orizonerr "github.com/orizon-lang/orizon-emu/internal/errors"
)

// MemoryAccessor is the collaborator a process needs from the memory
// manager to service READ/WRITE. It is satisfied by *memory.Manager;
// defining it here (rather than importing *memory.Manager directly into
// every call site) keeps the interpreter's dependency surface minimal.
type MemoryAccessor interface {
	AccessMemory(pid uint64, memoryRequired uint32, virtualAddr uint32, isWrite bool) (uint32, memory.AccessStatus)
	ReadU16(physAddr uint32) uint16
	WriteU16(physAddr uint32, value uint16)
}

// Step executes at most one instruction of p's program, per the contract in
// spec.md §4.3. coreID is recorded on any log entries produced this step.
func (p *Process) Step(mem MemoryAccessor, delaysPerExec int, coreID int) {
	if p.IsDone() {
		return
	}

	if p.DelayCounter > 0 {
		p.DelayCounter--
		if p.DelayCounter > 0 {
			p.State = Sleeping
			return
		}
		// Countdown just reached zero: fall through and fetch this same
		// tick rather than wasting one (matches spec.md §8 scenario S4's
		// literal trace -- see DESIGN.md).
	}

	if p.PC >= len(p.Instructions) {
		p.State = Finished
		return
	}

	p.State = Running
	instr := p.Instructions[p.PC]
	delay := p.execute(instr, mem, coreID)

	if p.State == Terminated || p.State == Blocked {
		return // do not advance PC; Blocked instructions retry on re-dispatch
	}

	p.PC++
	if p.PC >= len(p.Instructions) {
		p.State = Finished
		return
	}

	if delaysPerExec > delay {
		delay = delaysPerExec
	}
	p.DelayCounter = delay
	if p.DelayCounter > 0 {
		p.State = Sleeping
	}
}

// execute runs one instruction and returns its delay value (spec.md §4.3's
// "schedule me again after this many additional ticks"; negative values are
// only used internally to signal self-termination and are never read by
// Step once State has been set to Terminated).
func (p *Process) execute(instr Instr, mem MemoryAccessor, coreID int) int {
	switch ins := instr.(type) {
	case Declare:
		p.Symbols.Set(ins.Var, ins.Value)
		return 0

	case Add:
		a := p.resolve(ins.A)
		b := p.resolve(ins.B)
		result := saturatingAdd(a, b)
		p.Symbols.Set(ins.Dst, result)
		p.log(coreID, fmt.Sprintf("ADD\t\t%s = %d + %d -> %d", ins.Dst, a, b, result))
		return 0

	case Sub:
		a := p.resolve(ins.A)
		b := p.resolve(ins.B)
		result := saturatingSub(a, b)
		p.Symbols.Set(ins.Dst, result)
		p.log(coreID, fmt.Sprintf("SUBTRACT\t%s = %d - %d -> %d", ins.Dst, a, b, result))
		return 0

	case Print:
		p.log(coreID, p.formatPrint(ins))
		return 0

	case Sleep:
		return int(ins.Ticks)

	case Read:
		addr := p.resolve(ins.Addr)
		phys, status := mem.AccessMemory(p.PID, p.MemoryRequired, uint32(addr), false)
		switch status {
		case memory.StatusOK:
			p.Symbols.Set(ins.Dst, mem.ReadU16(phys))
			return 0
		case memory.StatusBlocked:
			p.State = Blocked
			return 0
		default: // StatusViolation
			p.terminate(uint32(addr))
			return -1
		}

	case Write:
		addr := p.resolve(ins.Addr)
		value := p.resolve(ins.Value)
		phys, status := mem.AccessMemory(p.PID, p.MemoryRequired, uint32(addr), true)
		switch status {
		case memory.StatusOK:
			mem.WriteU16(phys, value)
			return 0
		case memory.StatusBlocked:
			p.State = Blocked
			return 0
		default:
			p.terminate(uint32(addr))
			return -1
		}

	default:
		return 0
	}
}

func (p *Process) terminate(offendingAddr uint32) {
	p.State = Terminated
	p.Termination = &TerminationInfo{
		Timestamp: timestamp.Now(),
		Address:   offendingAddr,
		Err:       orizonerr.MemoryAccessViolation(p.PID, offendingAddr, p.MemoryRequired),
	}
}

func (p *Process) formatPrint(ins Print) string {
	switch ins.Kind {
	case PrintHello:
		return "Hello world from " + p.Name + "!"
	case PrintLiteral:
		return ins.Literal
	case PrintVariable:
		v := p.Symbols.Get(ins.Var)
		return fmt.Sprintf("Accessing variable '%s' with value %d", ins.Var, v)
	case PrintExpression:
		var b strings.Builder
		for i, tok := range ins.Expr {
			if i > 0 {
				b.WriteString(" + ")
			}
			if tok.IsVar {
				b.WriteString(fmt.Sprintf("%d", p.Symbols.Get(tok.Var)))
			} else {
				b.WriteString(tok.Literal)
			}
		}
		return b.String()
	default:
		return ""
	}
}
