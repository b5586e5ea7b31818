package scheduler

import (
	"path/filepath"
	"testing"

	"github.com/orizon-lang/orizon-emu/internal/emu/backingstore"
	"github.com/orizon-lang/orizon-emu/internal/emu/config"
	"github.com/orizon-lang/orizon-emu/internal/emu/memory"
	"github.com/orizon-lang/orizon-emu/internal/emu/process"
)

func newTestScheduler(t *testing.T, cfg config.Config) *Scheduler {
	t.Helper()
	store, serr := backingstore.Open(filepath.Join(t.TempDir(), "store.txt"), int(cfg.MemPerFrame))
	if serr != nil {
		t.Fatalf("Open: %v", serr)
	}
	mem := memory.NewManager(cfg.FrameCount(), cfg.MemPerFrame, store)
	return New(cfg, mem)
}

func threePrints(name string) []process.Instr {
	return []process.Instr{
		process.Print{Kind: process.PrintLiteral, Literal: name + "-a"},
		process.Print{Kind: process.PrintLiteral, Literal: name + "-b"},
		process.Print{Kind: process.PrintLiteral, Literal: name + "-c"},
	}
}

// TestScenarioS1EndToEnd checks S1's timing through the scheduler: one
// process, one core, three instructions (three PRINTs here, in place of S1's
// DECLARE/ADD/PRINT), done after exactly three ticks.
func TestScenarioS1EndToEnd(t *testing.T) {
	cfg := config.Default()
	cfg.NumCPU = 1
	cfg.SchedulerKind = config.FCFS
	s := newTestScheduler(t, cfg)

	p := process.New(1, "s1", threePrints("s1"), 64, cfg.MemPerFrame)
	s.Submit(p)

	for i := 0; i < 3; i++ {
		s.Tick()
	}
	if !p.IsDone() {
		t.Fatalf("after 3 ticks state = %s, want done", p.State)
	}
	if len(p.Logs) != 3 {
		t.Fatalf("len(Logs) = %d, want 3", len(p.Logs))
	}
}

// TestScenarioS7RoundRobinFairness reproduces spec.md §8 S7: two
// four-instruction processes sharing one core under round robin with
// quantum 2 dispatch in P1,P1,P2,P2,P1,P1,P2,P2 order across 8 ticks.
func TestScenarioS7RoundRobinFairness(t *testing.T) {
	cfg := config.Default()
	cfg.NumCPU = 1
	cfg.SchedulerKind = config.RoundRobin
	cfg.QuantumCycles = 2
	s := newTestScheduler(t, cfg)

	fourPrints := func(name string) []process.Instr {
		return []process.Instr{
			process.Print{Kind: process.PrintLiteral, Literal: name + "-1"},
			process.Print{Kind: process.PrintLiteral, Literal: name + "-2"},
			process.Print{Kind: process.PrintLiteral, Literal: name + "-3"},
			process.Print{Kind: process.PrintLiteral, Literal: name + "-4"},
		}
	}

	p1 := process.New(1, "p1", fourPrints("p1"), 64, cfg.MemPerFrame)
	p2 := process.New(2, "p2", fourPrints("p2"), 64, cfg.MemPerFrame)
	s.Submit(p1)
	s.Submit(p2)

	var order []uint64
	for i := 0; i < 8; i++ {
		s.Tick()
		s.mu.Lock()
		bound := s.cores[0].Current()
		s.mu.Unlock()
		if bound != nil {
			order = append(order, bound.PID)
		}
	}

	want := []uint64{1, 1, 2, 2, 1, 1, 2, 2}
	if len(order) != len(want) {
		t.Fatalf("dispatch order length = %d, want %d: %v", len(order), len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("dispatch order = %v, want %v", order, want)
		}
	}
	if !p1.IsDone() || !p2.IsDone() {
		t.Fatalf("expected both processes done after 8 ticks: p1=%s p2=%s", p1.State, p2.State)
	}
}

// TestScenarioS6FIFOEvictionAcrossProcesses follows spec.md §8 S6 with a
// single frame: two writers on two cores share it, so the second fault
// evicts the first writer's dirty page, and both still finish.
func TestScenarioS6FIFOEvictionAcrossProcesses(t *testing.T) {
	cfg := config.Default()
	cfg.NumCPU = 2
	cfg.MaxOverallMem = 128
	cfg.MemPerFrame = 128 // only 1 frame total -- forces eviction across processes
	cfg.MinMemPerProc = 64
	cfg.MaxMemPerProc = 256
	s := newTestScheduler(t, cfg)

	write := func(name string, addr uint16, val uint16) []process.Instr {
		return []process.Instr{
			process.Write{Addr: process.Imm(addr), Value: process.Imm(val)},
		}
	}
	p1 := process.New(1, "p1", write("p1", 0, 11), 128, cfg.MemPerFrame)
	p2 := process.New(2, "p2", write("p2", 0, 22), 128, cfg.MemPerFrame)
	s.Submit(p1)
	s.Submit(p2)

	for i := 0; i < 2; i++ {
		s.Tick()
	}
	if !p1.IsDone() || !p2.IsDone() {
		t.Fatalf("expected both writers done: p1=%s p2=%s", p1.State, p2.State)
	}
	stats := s.mem.Stats()
	if stats.EvictionsDirty != 1 {
		t.Fatalf("EvictionsDirty = %d, want 1", stats.EvictionsDirty)
	}
	if stats.PagesOut != 1 {
		t.Fatalf("PagesOut = %d, want 1", stats.PagesOut)
	}
}

func TestTickAccountingIdleWhenNoWork(t *testing.T) {
	cfg := config.Default()
	cfg.NumCPU = 2
	s := newTestScheduler(t, cfg)

	s.Tick()
	if s.IdleTicks() != 2 {
		t.Fatalf("IdleTicks() = %d, want 2", s.IdleTicks())
	}
	if s.ActiveTicks() != 0 {
		t.Fatalf("ActiveTicks() = %d, want 0", s.ActiveTicks())
	}
}

func TestSubmitBlocksOversizedProcess(t *testing.T) {
	cfg := config.Default()
	cfg.NumCPU = 1
	cfg.MaxOverallMem = 256
	cfg.MemPerFrame = 64
	s := newTestScheduler(t, cfg)

	p := process.New(1, "huge", threePrints("huge"), cfg.MaxMemPerProc, cfg.MemPerFrame)
	s.Submit(p)

	if p.State != process.Blocked {
		t.Fatalf("state = %s, want Blocked for an oversized process", p.State)
	}
}
