// Package memory implements the page-table / frame-table / FIFO eviction
// engine of spec.md §4.2, generalized from
// internal/runtime/kernel/vmm.go's x86-flavored VirtualMemoryManager (global
// singleton, per-PID page directory) into a flat, explicitly-constructed
// manager keyed by pid, per spec.md §9's singleton-removal guidance.
package memory

import (
	"sync"

	"github.com/orizon-lang/orizon-emu/internal/emu/backingstore"
	orizonerr "github.com/orizon-lang/orizon-emu/internal/errors"
)

type blockedInfo struct {
	memoryRequired uint32
	pageCount      int
}

// Manager owns the frame table, the FIFO victim queue, every process's page
// table, and the backing store. All operations serialize on mu, matching
// spec.md §4.2's "all operations serialize on an internal lock" contract.
type Manager struct {
	mu sync.Mutex

	frameSize uint32
	mem       []byte // raw physical storage, frameSize * len(frames) bytes

	frames []Frame
	fifo   []int // frame numbers, oldest at front (FIFO invariant, spec.md §3)

	store       *backingstore.Store
	pageTables  map[uint64]*PageTable
	ownedFrames map[uint64]int
	blocked     map[uint64]blockedInfo

	nextArrival uint64
	stats       Stats
}

// NewManager sizes the frame table to frameCount frames of frameSize bytes
// each, backed by store for spilled pages.
func NewManager(frameCount int, frameSize uint32, store *backingstore.Store) *Manager {
	return &Manager{
		frameSize:   frameSize,
		mem:         make([]byte, int(frameSize)*frameCount),
		frames:      make([]Frame, frameCount),
		store:       store,
		pageTables:  make(map[uint64]*PageTable),
		ownedFrames: make(map[uint64]int),
		blocked:     make(map[uint64]blockedInfo),
	}
}

// AllocatePageTable sizes pid's page table to pageCount entries, all
// non-present. If memoryRequired exceeds the manager's total physical
// memory, the process can never be resident and the call reports blocked=true
// without sizing a table (spec.md §4.2).
func (m *Manager) AllocatePageTable(pid uint64, memoryRequired uint32, pageCount int) (blocked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	totalBytes := uint32(len(m.mem))
	if memoryRequired > totalBytes {
		m.blocked[pid] = blockedInfo{memoryRequired: memoryRequired, pageCount: pageCount}
		return true
	}
	m.pageTables[pid] = newPageTable(pageCount)
	return false
}

// AccessMemory translates a virtual address for pid, faulting the page in if
// necessary (spec.md §4.2 fault-resolution algorithm).
func (m *Manager) AccessMemory(pid uint64, memoryRequired uint32, virtualAddr uint32, isWrite bool) (physAddr uint32, status AccessStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if virtualAddr+1 >= memoryRequired {
		return 0, StatusViolation
	}

	vpn := virtualAddr / m.frameSize
	offset := virtualAddr % m.frameSize

	table, ok := m.pageTables[pid]
	if !ok {
		// No page table means pid is still registered blocked (it never
		// fit in physical memory at AllocatePageTable time) and has no
		// business being dispatched; report blocked rather than fault.
		m.blocked[pid] = blockedInfo{memoryRequired: memoryRequired, pageCount: int((memoryRequired + m.frameSize - 1) / m.frameSize)}
		return 0, StatusBlocked
	}
	pte := &table.Entries[vpn]

	if pte.Present {
		pte.Referenced = true
		if isWrite {
			pte.Dirty = true
		}
		return pte.FrameNumber*m.frameSize + offset, StatusOK
	}

	frameNum, ok := m.faultInLocked(pid, vpn, isWrite)
	if !ok {
		m.blocked[pid] = blockedInfo{memoryRequired: memoryRequired, pageCount: len(table.Entries)}
		return 0, StatusBlocked
	}
	return frameNum*m.frameSize + offset, StatusOK
}

// faultInLocked implements spec.md §4.2 steps 1-6. Caller holds mu.
func (m *Manager) faultInLocked(pid uint64, vpn uint32, isWrite bool) (frameNumber uint32, ok bool) {
	free := m.findFreeFrameLocked()
	if free < 0 {
		victim := m.fifo[0]
		if serr := m.evictLocked(victim); serr != nil {
			return 0, false
		}
		free = victim
	}

	body, found := m.store.ReadPage(pid, vpn)
	if !found {
		body = make([]byte, m.frameSize)
		if serr := m.store.WritePage(pid, vpn, body); serr != nil {
			return 0, false
		}
	}
	copy(m.mem[int(uint32(free))*int(m.frameSize):], body)

	m.frames[free] = Frame{
		InUse:        true,
		OwnerPID:     pid,
		OwnerVPN:     vpn,
		ArrivalOrder: m.nextArrival,
		Dirty:        isWrite,
	}
	m.nextArrival++
	m.fifo = append(m.fifo, free)

	pte := &m.pageTables[pid].Entries[vpn]
	pte.Present = true
	pte.FrameNumber = uint32(free)
	pte.Dirty = isWrite
	pte.Referenced = true

	m.ownedFrames[pid]++
	m.stats.PagesIn++
	return uint32(free), true
}

func (m *Manager) findFreeFrameLocked() int {
	for i := range m.frames {
		if !m.frames[i].InUse {
			return i
		}
	}
	return -1
}

// evictLocked evicts the frame at the head of the FIFO queue, writing back if
// dirty. Caller holds mu.
func (m *Manager) evictLocked(frameNum int) *orizonerr.StandardError {
	victim := &m.frames[frameNum]

	if table, ok := m.pageTables[victim.OwnerPID]; ok && int(victim.OwnerVPN) < len(table.Entries) {
		ownerPTE := &table.Entries[victim.OwnerVPN]
		if ownerPTE.Dirty {
			body := make([]byte, m.frameSize)
			copy(body, m.mem[frameNum*int(m.frameSize):(frameNum+1)*int(m.frameSize)])
			if serr := m.store.WritePage(victim.OwnerPID, victim.OwnerVPN, body); serr != nil {
				return serr
			}
			m.stats.PagesOut++
			m.stats.EvictionsDirty++
		} else {
			m.stats.EvictionsClean++
		}
		ownerPTE.Present = false
		ownerPTE.FrameNumber = 0
	}

	m.ownedFrames[victim.OwnerPID]--
	m.fifo = m.fifo[1:]
	m.frames[frameNum] = Frame{}
	return nil
}

// ReadU16 reads a little-endian 16-bit value at a physical address.
func (m *Manager) ReadU16(physAddr uint32) uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint16(m.mem[physAddr]) | uint16(m.mem[physAddr+1])<<8
}

// WriteU16 writes a little-endian 16-bit value at a physical address.
func (m *Manager) WriteU16(physAddr uint32, value uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mem[physAddr] = byte(value)
	m.mem[physAddr+1] = byte(value >> 8)
}

// FreeProcessPages releases every frame owned by pid, marks its PTEs
// non-present, removes it from the FIFO queue, and returns the pids that
// try_unblock found newly eligible for re-dispatch.
func (m *Manager) FreeProcessPages(pid uint64) []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	remaining := m.fifo[:0]
	for _, fn := range m.fifo {
		if m.frames[fn].OwnerPID == pid {
			m.frames[fn] = Frame{}
			continue
		}
		remaining = append(remaining, fn)
	}
	m.fifo = remaining

	if table, ok := m.pageTables[pid]; ok {
		for i := range table.Entries {
			table.Entries[i].Present = false
			table.Entries[i].FrameNumber = 0
		}
	}
	delete(m.pageTables, pid)
	delete(m.ownedFrames, pid)

	return m.tryUnblockLocked()
}

// TryUnblock re-evaluates every Blocked process's residency budget against
// current frame availability (spec.md §4.2).
func (m *Manager) TryUnblock() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tryUnblockLocked()
}

func (m *Manager) tryUnblockLocked() []uint64 {
	var unblocked []uint64
	freeExists := m.findFreeFrameLocked() >= 0
	if !freeExists {
		return nil
	}
	for pid, info := range m.blocked {
		if info.memoryRequired > uint32(len(m.mem)) {
			// Can never fit in physical memory, regardless of frame
			// availability; leave it blocked forever rather than
			// reporting it unblocked with no page table to serve it.
			continue
		}
		if m.ownedFrames[pid] < info.pageCount {
			unblocked = append(unblocked, pid)
			delete(m.blocked, pid)
			if _, ok := m.pageTables[pid]; !ok {
				m.pageTables[pid] = newPageTable(info.pageCount)
			}
		}
	}
	return unblocked
}

// Stats returns a point-in-time snapshot of paging counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.FramesInUse = len(m.fifo)
	s.FramesFree = len(m.frames) - s.FramesInUse
	s.TotalBytes = uint64(len(m.mem))
	s.UsedBytes = uint64(s.FramesInUse) * uint64(m.frameSize)
	return s
}
