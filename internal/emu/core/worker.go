// Package core implements the per-logical-CPU execution engine of
// spec.md §4.4, generalized from internal/runtime/kernel/scheduler.go's
// per-CPU RunQueue bookkeeping down to the single bound-process-at-a-time
// model this spec needs.
package core

import (
	"sync"

	"github.com/orizon-lang/orizon-emu/internal/emu/process"
)

// MemoryAccessor is the collaborator a worker hands to its bound process on
// each tick.
type MemoryAccessor = process.MemoryAccessor

// Worker owns at most one running process at a time (spec.md §4.4).
type Worker struct {
	mu            sync.Mutex
	id            int
	current       *process.Process
	runTicks      int
	delaysPerExec int
}

// New constructs a free worker bound to logical CPU id.
func New(id int, delaysPerExec int) *Worker {
	return &Worker{id: id, delaysPerExec: delaysPerExec}
}

// ID returns the worker's logical CPU id.
func (w *Worker) ID() int { return w.id }

// Assign binds p to this worker, setting p.CoreID and p.State per
// spec.md §4.4. Idempotent until Clear or Preempt.
func (w *Worker) Assign(p *process.Process) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current = p
	w.runTicks = 0
	p.CoreID = w.id
	p.State = process.Running
}

// Current returns the bound process, if any.
func (w *Worker) Current() *process.Process {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// IsFree reports whether the worker has no bound process.
func (w *Worker) IsFree() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current == nil
}

// Preempt detaches the current process if it is not finished, returning it
// to Ready state with no core assigned.
func (w *Worker) Preempt() *process.Process {
	w.mu.Lock()
	defer w.mu.Unlock()
	p := w.current
	if p == nil || p.IsDone() {
		return nil
	}
	p.State = process.Ready
	p.CoreID = -1
	w.current = nil
	return p
}

// Clear detaches any current process unconditionally and marks the worker
// free.
func (w *Worker) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current = nil
}

// Tick advances the bound process's execution by one instruction-step, if
// any process is bound.
func (w *Worker) Tick(mem MemoryAccessor) {
	w.mu.Lock()
	p := w.current
	w.mu.Unlock()
	if p == nil {
		return
	}
	p.Step(mem, w.delaysPerExec, w.id)
	w.mu.Lock()
	w.runTicks++
	w.mu.Unlock()
}

// RunTicks returns the number of ticks the current process has held this
// core since its last (re)assignment.
func (w *Worker) RunTicks() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runTicks
}

// ResetRunTicks zeroes the run-tick counter without touching the bound
// process.
func (w *Worker) ResetRunTicks() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.runTicks = 0
}
