// Package orchestrator wires the backing store, memory manager, and
// scheduler into one object external callers (a CLI, a test harness) submit
// processes to and read reports from, de-globalizing
// internal/runtime/kernel/kernel.go's InitializeCompleteKernel staged-init
// style per spec.md §9.
package orchestrator

import (
	"sync"

	"github.com/orizon-lang/orizon-emu/internal/emu/backingstore"
	"github.com/orizon-lang/orizon-emu/internal/emu/config"
	"github.com/orizon-lang/orizon-emu/internal/emu/core"
	"github.com/orizon-lang/orizon-emu/internal/emu/memory"
	"github.com/orizon-lang/orizon-emu/internal/emu/process"
	"github.com/orizon-lang/orizon-emu/internal/emu/scheduler"
	orizonerr "github.com/orizon-lang/orizon-emu/internal/errors"
)

// Orchestrator is the single entry point the external UI/CLI/test harness
// talks to (spec.md §6). It never formats output itself.
type Orchestrator struct {
	cfg   config.Config
	store *backingstore.Store
	mem   *memory.Manager
	sched *scheduler.Scheduler

	mu      sync.Mutex
	nextPID uint64
}

// New validates cfg, opens the backing store at storePath, and wires the
// memory manager and scheduler. The scheduler is not started; call Start.
func New(cfg config.Config, storePath string) (*Orchestrator, *orizonerr.StandardError) {
	if serr := cfg.Validate(); serr != nil {
		return nil, serr
	}
	store, serr := backingstore.Open(storePath, int(cfg.MemPerFrame))
	if serr != nil {
		return nil, serr
	}
	mem := memory.NewManager(cfg.FrameCount(), cfg.MemPerFrame, store)
	sched := scheduler.New(cfg, mem)
	return &Orchestrator{cfg: cfg, store: store, mem: mem, sched: sched}, nil
}

func isPowerOfTwo(v uint32) bool { return v != 0 && v&(v-1) == 0 }

// NewProcess allocates the next pid and builds a process ready for Submit.
// memoryRequired must be a power of two within [MinMemPerProc, MaxMemPerProc]
// (spec.md §6).
func (o *Orchestrator) NewProcess(name string, instructions []process.Instr, memoryRequired uint32) (*process.Process, *orizonerr.StandardError) {
	if memoryRequired < o.cfg.MinMemPerProc || memoryRequired > o.cfg.MaxMemPerProc || !isPowerOfTwo(memoryRequired) {
		return nil, orizonerr.ConfigInvalid("memory_required", "must be a power of two within [min_mem_per_proc, max_mem_per_proc]")
	}
	o.mu.Lock()
	pid := o.nextPID
	o.nextPID++
	o.mu.Unlock()
	return process.New(pid, name, instructions, memoryRequired, o.cfg.MemPerFrame), nil
}

// Submit hands p to the scheduler (spec.md §6).
func (o *Orchestrator) Submit(p *process.Process) { o.sched.Submit(p) }

// Start begins the real-time dispatch loop.
func (o *Orchestrator) Start() { o.sched.Start() }

// Stop signals shutdown and waits for the dispatch loop to exit.
func (o *Orchestrator) Stop() { o.sched.Stop() }

// Tick drives exactly one dispatch-loop iteration; useful for deterministic
// tests and for a caller that wants to single-step the simulation.
func (o *Orchestrator) Tick() { o.sched.Tick() }

// IsRunning reports whether the dispatch loop is active.
func (o *Orchestrator) IsRunning() bool { return o.sched.IsRunning() }

// CoreReport is one core's read-only binding snapshot (spec.md §6).
type CoreReport struct {
	ID       int
	BoundPID uint64
	Bound    bool
	RunTicks int
}

// Report is the full read-only reporting surface spec.md §6 describes.
type Report struct {
	Processes   []*process.Process
	Cores       []CoreReport
	Memory      memory.Stats
	IdleTicks   uint64
	ActiveTicks uint64
	TotalTicks  uint64
}

// Snapshot builds a Report from current state. It never formats output
// itself; external UI does that (spec.md §1 out-of-scope, §6).
func (o *Orchestrator) Snapshot() Report {
	cores := o.sched.Cores()
	coreReports := make([]CoreReport, len(cores))
	for i, w := range cores {
		coreReports[i] = coreReportOf(w)
	}
	return Report{
		Processes:   o.sched.SnapshotProcesses(),
		Cores:       coreReports,
		Memory:      o.mem.Stats(),
		IdleTicks:   o.sched.IdleTicks(),
		ActiveTicks: o.sched.ActiveTicks(),
		TotalTicks:  o.sched.TotalTicks(),
	}
}

func coreReportOf(w *core.Worker) CoreReport {
	p := w.Current()
	if p == nil {
		return CoreReport{ID: w.ID()}
	}
	return CoreReport{ID: w.ID(), BoundPID: p.PID, Bound: true, RunTicks: w.RunTicks()}
}
