package mdbxkv

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// guardFileName lives next to the engine's own data files and carries
// the cross-process writer lock.
const guardFileName = "mdbxkv.lck"

// openPaths tracks environments open in this process. The engine forbids
// opening the same data file twice from one process; catching it here
// gives a typed Busy error instead of engine corruption.
var (
	openPathsMu sync.Mutex
	openPaths   = map[string]struct{}{}
)

// pathGuard pins a data directory for the lifetime of one Env.
type pathGuard struct {
	path string
	f    *os.File
}

func acquirePathGuard(dir string, readonly bool) (*pathGuard, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	openPathsMu.Lock()
	if _, dup := openPaths[abs]; dup {
		openPathsMu.Unlock()
		return nil, busyError("env_open", fmt.Errorf("%s already open in this process", abs))
	}
	openPaths[abs] = struct{}{}
	openPathsMu.Unlock()

	g := &pathGuard{path: abs}
	if readonly {
		// Readers coexist across processes; the engine's own reader
		// table arbitrates them.
		return g, nil
	}
	if err := os.MkdirAll(abs, 0744); err != nil {
		g.release()
		return nil, fmt.Errorf("create %s: %w", abs, err)
	}
	f, err := os.OpenFile(filepath.Join(abs, guardFileName), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		g.release()
		return nil, fmt.Errorf("open guard file: %w", err)
	}
	if err := flockExclusive(f); err != nil {
		f.Close()
		g.release()
		return nil, err
	}
	g.f = f
	return g, nil
}

func (g *pathGuard) release() {
	if g.f != nil {
		flockRelease(g.f)
		g.f.Close()
		g.f = nil
	}
	openPathsMu.Lock()
	delete(openPaths, g.path)
	openPathsMu.Unlock()
}
