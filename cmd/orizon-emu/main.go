// Command orizon-emu boots the process/memory emulator core with a small
// built-in demo workload and runs it to completion, printing a final
// report. Interactive UI, config-file loading, and a random instruction
// generator are external collaborators this core only exposes interfaces
// for (spec.md §1); this binary stands in for all three with flags and a
// hand-written workload.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/orizon-lang/orizon-emu/internal/emu/config"
	"github.com/orizon-lang/orizon-emu/internal/emu/orchestrator"
	"github.com/orizon-lang/orizon-emu/internal/emu/process"
)

func main() {
	cfg := config.Default()

	numCPU := flag.Int("num-cpu", cfg.NumCPU, "number of logical CPUs")
	rr := flag.Bool("rr", cfg.SchedulerKind == config.RoundRobin, "use round-robin scheduling (false = FCFS)")
	quantum := flag.Int("quantum-cycles", cfg.QuantumCycles, "round-robin quantum, in ticks")
	storePath := flag.String("backing-store", "orizon-emu-backing-store.txt", "backing store file path")
	flag.Parse()

	cfg.NumCPU = *numCPU
	cfg.QuantumCycles = *quantum
	if *rr {
		cfg.SchedulerKind = config.RoundRobin
	} else {
		cfg.SchedulerKind = config.FCFS
	}

	fmt.Println("Orizon Process/Memory Emulator - Initializing...")
	fmt.Printf("  [1/3] Validating configuration (cpus=%d, policy=%s, quantum=%d)...\n", cfg.NumCPU, cfg.SchedulerKind, cfg.QuantumCycles)

	orch, serr := orchestrator.New(cfg, *storePath)
	if serr != nil {
		fmt.Fprintf(os.Stderr, "configuration rejected: %v\n", serr)
		os.Exit(1)
	}

	fmt.Println("  [2/3] Submitting demo workload...")
	for i := 0; i < 3; i++ {
		p, serr := orch.NewProcess(fmt.Sprintf("demo-%d", i), demoWorkload(), cfg.MinMemPerProc)
		if serr != nil {
			fmt.Fprintf(os.Stderr, "process rejected: %v\n", serr)
			os.Exit(1)
		}
		orch.Submit(p)
	}

	fmt.Println("  [3/3] Starting scheduler...")
	orch.Start()

	for {
		time.Sleep(200 * time.Millisecond)
		report := orch.Snapshot()
		allDone := true
		for _, p := range report.Processes {
			if !p.IsDone() {
				allDone = false
				break
			}
		}
		if allDone {
			break
		}
	}
	orch.Stop()

	report := orch.Snapshot()
	fmt.Println("\nFinal report:")
	for _, p := range report.Processes {
		fmt.Printf("  pid=%d name=%s state=%s logs=%d\n", p.PID, p.Name, p.State, len(p.Logs))
	}
	fmt.Printf("ticks: idle=%d active=%d total=%d\n", report.IdleTicks, report.ActiveTicks, report.TotalTicks)
	fmt.Printf("memory: pages_in=%d pages_out=%d frames_in_use=%d frames_free=%d\n",
		report.Memory.PagesIn, report.Memory.PagesOut, report.Memory.FramesInUse, report.Memory.FramesFree)
}

// demoWorkload stands in for the external random instruction generator
// (spec.md §1 out of scope).
func demoWorkload() []process.Instr {
	return []process.Instr{
		process.Declare{Var: "x", Value: 10},
		process.Add{Dst: "y", A: process.Var("x"), B: process.Imm(5)},
		process.Print{Kind: process.PrintVariable, Var: "y"},
		process.Sleep{Ticks: 2},
		process.Print{Kind: process.PrintHello},
	}
}
