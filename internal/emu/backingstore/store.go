// Package backingstore implements the persistent page repository described
// in spec.md §4.1/§6: a logical (pid, vpn) -> page-bytes map backed by a
// single text file, rewritten wholesale on every write (the strategy
// original_source/BackingStore.cpp uses, and spec.md §9 calls acceptable
// for this workload size).
package backingstore

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	orizonerr "github.com/orizon-lang/orizon-emu/internal/errors"
)

type pageKey struct {
	pid uint64
	vpn uint32
}

// segment preserves file structure across rewrites: either a verbatim line
// the store doesn't understand, or a page block identified by key (whose
// current bytes are looked up in the pages map at write time).
type segment struct {
	isPage bool
	key    pageKey
	raw    string
}

// Store is a single backing-store file. Safe for concurrent use, though in
// practice the memory manager is the only caller and already serializes
// access with its own lock (spec.md §4.1).
type Store struct {
	mu        sync.Mutex
	path      string
	frameSize int
	pages     map[pageKey][]byte
	order     []segment
	index     map[pageKey]int // position in order, for in-place replace
}

// Open loads an existing backing-store file (if any) and returns a Store
// ready for use. A missing file is not an error: the store starts empty.
func Open(path string, frameSize int) (*Store, *orizonerr.StandardError) {
	s := &Store{
		path:      path,
		frameSize: frameSize,
		pages:     make(map[pageKey][]byte),
		index:     make(map[pageKey]int),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() *orizonerr.StandardError {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return orizonerr.BackingStoreIO("open", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		pid, vpn, ok := parseHeader(line)
		if !ok {
			s.appendRaw(line)
			continue
		}
		buf := make([]byte, s.frameSize)
		for i := 0; i < s.frameSize; i++ {
			if !sc.Scan() {
				return orizonerr.BackingStoreIO("load", fmt.Errorf("truncated page body for pid=%d vpn=%d", pid, vpn))
			}
			v, convErr := strconv.Atoi(strings.TrimSpace(sc.Text()))
			if convErr != nil || v < 0 || v > 255 {
				return orizonerr.BackingStoreIO("load", fmt.Errorf("malformed byte line for pid=%d vpn=%d", pid, vpn))
			}
			buf[i] = byte(v)
		}
		if sc.Scan() {
			// footer line "[/PID ... VPN ...]" is consumed and discarded;
			// its content is regenerated verbatim from key on persist.
		}
		key := pageKey{pid: pid, vpn: vpn}
		s.pages[key] = buf
		s.index[key] = len(s.order)
		s.order = append(s.order, segment{isPage: true, key: key})
	}
	if err := sc.Err(); err != nil {
		return orizonerr.BackingStoreIO("load", err)
	}
	return nil
}

func (s *Store) appendRaw(line string) {
	s.order = append(s.order, segment{raw: line})
}

func header(pid uint64, vpn uint32) string {
	return fmt.Sprintf("[PID %d VPN %d]", pid, vpn)
}

func footer(pid uint64, vpn uint32) string {
	return fmt.Sprintf("[/PID %d VPN %d]", pid, vpn)
}

func parseHeader(line string) (pid uint64, vpn uint32, ok bool) {
	var p uint64
	var v uint32
	n, err := fmt.Sscanf(line, "[PID %d VPN %d]", &p, &v)
	if err != nil || n != 2 {
		return 0, 0, false
	}
	return p, v, true
}

// WritePage atomically replaces the stored contents for (pid, vpn). bytes
// must be exactly frameSize long.
func (s *Store) WritePage(pid uint64, vpn uint32, bytes []byte) *orizonerr.StandardError {
	if len(bytes) != s.frameSize {
		return orizonerr.BackingStoreIO("write_page", fmt.Errorf("page length %d != frame size %d", len(bytes), s.frameSize))
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pageKey{pid: pid, vpn: vpn}
	cp := make([]byte, len(bytes))
	copy(cp, bytes)
	s.pages[key] = cp
	if _, exists := s.index[key]; !exists {
		s.index[key] = len(s.order)
		s.order = append(s.order, segment{isPage: true, key: key})
	}
	return s.persistLocked()
}

// ReadPage returns the previously written contents for (pid, vpn), if any.
func (s *Store) ReadPage(pid uint64, vpn uint32) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.pages[pageKey{pid: pid, vpn: vpn}]
	if !ok {
		return nil, false
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp, true
}

// HasPage reports whether (pid, vpn) has ever been written.
func (s *Store) HasPage(pid uint64, vpn uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pages[pageKey{pid: pid, vpn: vpn}]
	return ok
}

func (s *Store) persistLocked() *orizonerr.StandardError {
	tmpPath := s.path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return orizonerr.BackingStoreIO("persist", err)
	}
	if err := flockExclusive(f); err != nil {
		f.Close()
		return orizonerr.BackingStoreIO("persist", err)
	}

	w := bufio.NewWriter(f)
	for _, seg := range s.order {
		if !seg.isPage {
			fmt.Fprintln(w, seg.raw)
			continue
		}
		body, ok := s.pages[seg.key]
		if !ok {
			continue // page removed; drop the block entirely
		}
		fmt.Fprintln(w, header(seg.key.pid, seg.key.vpn))
		for _, b := range body {
			fmt.Fprintln(w, int(b))
		}
		fmt.Fprintln(w, footer(seg.key.pid, seg.key.vpn))
	}
	if err := w.Flush(); err != nil {
		funlock(f)
		f.Close()
		return orizonerr.BackingStoreIO("persist", err)
	}
	if err := funlock(f); err != nil {
		f.Close()
		return orizonerr.BackingStoreIO("persist", err)
	}
	if err := f.Close(); err != nil {
		return orizonerr.BackingStoreIO("persist", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return orizonerr.BackingStoreIO("persist", err)
	}
	return nil
}
