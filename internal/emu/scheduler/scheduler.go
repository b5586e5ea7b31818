// Package scheduler implements the dispatch loop of spec.md §4.5: a single
// FCFS/RR scheduler (spec.md §9(iv) unifies what the original kept as two
// near-identical implementations), generalized from
// internal/runtime/kernel/scheduler.go's AdvancedScheduler/RunQueue
// singleton into an explicitly-constructed struct per spec.md §9.
package scheduler

import (
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orizon-lang/orizon-emu/internal/emu/config"
	"github.com/orizon-lang/orizon-emu/internal/emu/core"
	"github.com/orizon-lang/orizon-emu/internal/emu/memory"
	"github.com/orizon-lang/orizon-emu/internal/emu/process"
	orizonerr "github.com/orizon-lang/orizon-emu/internal/errors"
)

// TickPeriod is the nominal dispatch-loop period (spec.md §4.5).
const TickPeriod = time.Second

// Scheduler coordinates dispatch onto cores under the configured policy.
type Scheduler struct {
	mu           sync.Mutex
	cfg          config.Config
	mem          *memory.Manager
	cores        []*core.Worker
	readyQueue   []*process.Process
	allProcesses map[uint64]*process.Process

	idleTicks   uint64
	activeTicks uint64

	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	stopped sync.Once
	started bool

	logger *log.Logger
}

// New builds a scheduler with cfg.NumCPU idle cores, backed by mem for
// paging.
func New(cfg config.Config, mem *memory.Manager) *Scheduler {
	cores := make([]*core.Worker, cfg.NumCPU)
	for i := range cores {
		cores[i] = core.New(i, cfg.DelaysPerExec)
	}
	return &Scheduler{
		cfg:          cfg,
		mem:          mem,
		cores:        cores,
		allProcesses: make(map[uint64]*process.Process),
		wake:         make(chan struct{}, 1),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		logger:       log.New(os.Stderr, "[scheduler] ", log.LstdFlags),
	}
}

// Submit enqueues p at the tail of the ready queue and registers it in the
// process registry (spec.md §4.5/§6). If p's memory requirement can never
// fit in physical memory, it starts Blocked instead of Ready
// (spec.md §4.2 AllocatePageTable).
func (s *Scheduler) Submit(p *process.Process) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.allProcesses[p.PID] = p
	if blocked := s.mem.AllocatePageTable(p.PID, p.MemoryRequired, p.PageCount); blocked {
		p.State = process.Blocked
		s.logger.Printf("%v", orizonerr.MemoryPressure(p.PID))
		return
	}
	p.State = process.Ready
	s.readyQueue = append(s.readyQueue, p)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Cores returns borrowed references to the per-CPU workers, for reporting.
func (s *Scheduler) Cores() []*core.Worker {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*core.Worker, len(s.cores))
	copy(out, s.cores)
	return out
}

// SnapshotProcesses returns a read-only snapshot of every registered
// process.
func (s *Scheduler) SnapshotProcesses() []*process.Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*process.Process, 0, len(s.allProcesses))
	for _, p := range s.allProcesses {
		out = append(out, p)
	}
	return out
}

// IdleTicks, ActiveTicks, TotalTicks expose tick accounting (spec.md §4.5, P8).
func (s *Scheduler) IdleTicks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idleTicks
}

func (s *Scheduler) ActiveTicks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeTicks
}

func (s *Scheduler) TotalTicks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idleTicks + s.activeTicks
}

// Tick drives exactly one dispatch-loop iteration (spec.md §4.5 steps 2-4).
// Exposed so tests can drive the scheduler deterministically
// (spec.md §5's "testable by driving ticks manually"); Start uses it
// internally on a real-time cadence.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	s.reapAndPreemptLocked()
	s.dispatchFreeCoresLocked()
	boundAtStart := make([]bool, len(s.cores))
	for i, w := range s.cores {
		boundAtStart[i] = w.Current() != nil
	}
	s.mu.Unlock()

	s.stepCoresConcurrently()

	s.mu.Lock()
	for _, hadProcess := range boundAtStart {
		if hadProcess {
			s.activeTicks++
		} else {
			s.idleTicks++
		}
	}
	s.mu.Unlock()
}

// reapAndPreemptLocked implements spec.md §4.5 step 2. Caller holds mu.
func (s *Scheduler) reapAndPreemptLocked() {
	for _, w := range s.cores {
		p := w.Current()
		if p == nil {
			continue
		}
		if p.IsDone() {
			w.Clear()
			s.logger.Printf("pid=%d reaped state=%s", p.PID, p.State)
			unblocked := s.mem.FreeProcessPages(p.PID)
			s.requeueUnblockedLocked(unblocked)
			continue
		}
		if p.State == process.Blocked {
			// A Blocked process gives up its core; requeueUnblockedLocked
			// puts it back on the ready queue once frames are freed.
			w.Clear()
			p.CoreID = -1
			continue
		}
		if s.cfg.SchedulerKind == config.RoundRobin && w.RunTicks() >= s.cfg.QuantumCycles {
			if pre := w.Preempt(); pre != nil {
				s.logger.Printf("pid=%d preempted core=%d quantum=%d", pre.PID, w.ID(), s.cfg.QuantumCycles)
				if pre.State == process.Ready {
					s.readyQueue = append(s.readyQueue, pre)
				}
			}
		}
	}
}

func (s *Scheduler) requeueUnblockedLocked(pids []uint64) {
	for _, pid := range pids {
		if p, ok := s.allProcesses[pid]; ok && p.State == process.Blocked {
			p.State = process.Ready
			s.readyQueue = append(s.readyQueue, p)
		}
	}
}

// dispatchFreeCoresLocked implements spec.md §4.5 step 3. Caller holds mu.
func (s *Scheduler) dispatchFreeCoresLocked() {
	for _, w := range s.cores {
		if !w.IsFree() {
			continue
		}
		for len(s.readyQueue) > 0 {
			head := s.readyQueue[0]
			if head.State == process.Blocked || head.IsDone() {
				s.readyQueue = s.readyQueue[1:]
				continue
			}
			s.readyQueue = s.readyQueue[1:]
			w.Assign(head)
			break
		}
	}
}

// stepCoresConcurrently implements spec.md §4.5 step 4 using one goroutine
// per core -- the "worker thread per core" variant spec.md §5 permits,
// matching internal/packagemanager.Manager's errgroup fan-out/join idiom.
// The memory manager's own lock serializes all paging activity across the
// fan-out, and each worker only ever touches the single process bound to
// it, so no two goroutines here ever touch the same process.
func (s *Scheduler) stepCoresConcurrently() {
	var g errgroup.Group
	for _, w := range s.cores {
		w := w
		g.Go(func() error {
			w.Tick(s.mem)
			return nil
		})
	}
	_ = g.Wait() // worker Tick never returns an error
}

// Start launches the real-time dispatch loop on a TickPeriod cadence. Idempotent.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go s.loop()
}

func (s *Scheduler) loop() {
	defer close(s.done)
	ticker := time.NewTicker(TickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Tick()
		case <-s.wake:
			s.Tick()
		}
	}
}

// Stop signals shutdown and waits for the dispatch loop to exit. Idempotent.
func (s *Scheduler) Stop() {
	s.stopped.Do(func() {
		close(s.stop)
	})
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		<-s.done
	}
}

// IsRunning reports whether the dispatch loop is active.
func (s *Scheduler) IsRunning() bool {
	select {
	case <-s.done:
		return false
	default:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.started
	}
}
