package mdbxkv

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/erigontech/mdbx-go/mdbx"
	"github.com/ledgerwatch/log/v3"
	"golang.org/x/sync/semaphore"
)

// Env owns one opened storage location. Every Txn, DBI and Cursor borrows
// from it; Close waits for all borrowers to finish before releasing the
// engine handle.
type Env struct {
	env  *mdbx.Env
	opts Opts
	log  log.Logger
	path string

	// Live transaction tracking. Close blocks on this so the engine
	// handle can never go away under an active transaction.
	wg sync.WaitGroup

	// writer admits at most one top-level write transaction.
	writer *semaphore.Weighted

	// readers keeps the number of concurrent read-only transactions
	// under the engine's reader slot table size.
	readers *semaphore.Weighted

	guard *pathGuard

	// Named database handles, promoted here once the opening
	// transaction commits. Valid for the life of the environment.
	dbiMu sync.RWMutex
	dbis  map[string]DBI

	closed atomic.Bool
}

// Open opens the environment at opts.Path, creating the directory and a
// fresh database as needed.
func (o Opts) Open() (*Env, error) {
	if o.path == "" {
		return nil, &Error{Kind: KindOther, Op: "env_open", Err: fmt.Errorf("path is required")}
	}
	if o.log == nil {
		o.log = log.New()
	}
	logger := o.log.New("mdbxkv", o.label)

	guard, err := acquirePathGuard(o.path, o.readonly)
	if err != nil {
		return nil, err
	}

	env, err := mdbx.NewEnv(mdbx.Label(o.label))
	if err != nil {
		guard.release()
		return nil, translate("env_open", err)
	}
	if err = env.SetOption(mdbx.OptMaxDB, o.maxDBs); err != nil {
		guard.release()
		return nil, translate("env_open", err)
	}
	if err = env.SetOption(mdbx.OptMaxReaders, o.maxReaders); err != nil {
		guard.release()
		return nil, translate("env_open", err)
	}
	if !o.readonly {
		if err = env.SetGeometry(-1, -1, int(o.mapSize), int(o.growthStep), -1, o.pageSize); err != nil {
			guard.release()
			return nil, translate("env_open", err)
		}
		if err = os.MkdirAll(o.path, 0744); err != nil {
			guard.release()
			return nil, &Error{Kind: KindOther, Op: "env_open", Err: err}
		}
	}

	if err = env.Open(o.path, o.envFlags(), 0664); err != nil {
		guard.release()
		return nil, translate("env_open", err)
	}

	if !o.readonly {
		if stale, err := env.ReaderCheck(); err != nil {
			logger.Warn("reader check failed", "err", err)
		} else if stale > 0 {
			logger.Debug("cleared stale reader slots", "amount", stale)
		}
	}

	roLimit := o.roTxsLimit
	if roLimit <= 0 {
		roLimit = int64(o.maxReaders)
	}

	e := &Env{
		env:     env,
		opts:    o,
		log:     logger,
		path:    o.path,
		writer:  semaphore.NewWeighted(1),
		readers: semaphore.NewWeighted(roLimit),
		guard:   guard,
		dbis:    map[string]DBI{},
	}
	logger.Debug("environment opened", "path", o.path, "readonly", o.readonly)
	return e, nil
}

// MustOpen is Open that panics on failure. For tests and main-path setup.
func (o Opts) MustOpen() *Env {
	e, err := o.Open()
	if err != nil {
		panic(fmt.Errorf("mdbxkv open: %w", err))
	}
	return e
}

// Path returns the storage location this environment was opened at.
func (e *Env) Path() string { return e.path }

// Close releases the environment. It blocks until every transaction
// derived from it has committed or aborted, so a handle can never
// outlive the resource it borrows from. Close is idempotent.
func (e *Env) Close() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	e.wg.Wait()
	e.env.Close()
	e.guard.release()
	e.log.Debug("environment closed", "path", e.path)
}

// BeginRo starts a read-only transaction. Any number may be active at
// once; ctx bounds the wait for a reader slot.
func (e *Env) BeginRo(ctx context.Context) (*Txn, error) {
	if e.closed.Load() {
		return nil, opError("begin_ro", ErrEnvClosed)
	}
	if err := e.readers.Acquire(ctx, 1); err != nil {
		return nil, busyError("begin_ro", err)
	}
	txn, err := e.env.BeginTxn(nil, mdbx.Readonly)
	if err != nil {
		e.readers.Release(1)
		return nil, translate("begin_ro", err)
	}
	e.wg.Add(1)
	return newTxn(e, txn, nil, true), nil
}

// BeginRw starts the write transaction. At most one top-level write
// transaction is active per environment; further callers block on the
// writer gate until it resolves, or until ctx expires.
func (e *Env) BeginRw(ctx context.Context) (*Txn, error) {
	if e.closed.Load() {
		return nil, opError("begin_rw", ErrEnvClosed)
	}
	if e.opts.readonly {
		return nil, opError("begin_rw", ErrReadOnlyEnv)
	}
	if err := e.writer.Acquire(ctx, 1); err != nil {
		return nil, busyError("begin_rw", err)
	}
	return e.beginRwLocked()
}

// TryBeginRw is BeginRw that never blocks: if the writer gate is held it
// fails immediately with a Busy error.
func (e *Env) TryBeginRw() (*Txn, error) {
	if e.closed.Load() {
		return nil, opError("begin_rw", ErrEnvClosed)
	}
	if e.opts.readonly {
		return nil, opError("begin_rw", ErrReadOnlyEnv)
	}
	if !e.writer.TryAcquire(1) {
		return nil, busyError("begin_rw", fmt.Errorf("write transaction already active"))
	}
	return e.beginRwLocked()
}

// beginRwLocked runs with the writer gate held; on error the gate is
// released before returning.
func (e *Env) beginRwLocked() (*Txn, error) {
	// The engine requires a write transaction to stay on one OS thread
	// for its whole life.
	runtime.LockOSThread()
	txn, err := e.env.BeginTxn(nil, 0)
	if err != nil {
		runtime.UnlockOSThread()
		e.writer.Release(1)
		return nil, translate("begin_rw", err)
	}
	e.wg.Add(1)
	return newTxn(e, txn, nil, false), nil
}

// View runs fn inside a read-only transaction and rolls it back when fn
// returns.
func (e *Env) View(ctx context.Context, fn func(*Txn) error) error {
	txn, err := e.BeginRo(ctx)
	if err != nil {
		return err
	}
	defer txn.Abort()
	return fn(txn)
}

// Update runs fn inside a write transaction. The transaction commits when
// fn returns nil and aborts otherwise, covering error-path unwinding.
func (e *Env) Update(ctx context.Context, fn func(*Txn) error) error {
	txn, err := e.BeginRw(ctx)
	if err != nil {
		return err
	}
	defer txn.Abort()
	if err := fn(txn); err != nil {
		return err
	}
	return txn.Commit()
}

// Stat describes the main database tree.
type Stat struct {
	PageSize      uint64
	Depth         uint64
	BranchPages   uint64
	LeafPages     uint64
	OverflowPages uint64
	Entries       uint64
}

// Info describes the environment geometry and reader table.
type Info struct {
	MapSize    uint64
	SizeUsed   uint64
	LastPgNo   uint64
	LastTxnID  uint64
	MaxReaders uint64
	PageSize   uint64
}

// Stat returns statistics for the environment's main database.
func (e *Env) Stat() (*Stat, error) {
	if e.closed.Load() {
		return nil, opError("env_stat", ErrEnvClosed)
	}
	st, err := e.env.Stat()
	if err != nil {
		return nil, translate("env_stat", err)
	}
	return &Stat{
		PageSize:      uint64(st.PSize),
		Depth:         uint64(st.Depth),
		BranchPages:   uint64(st.BranchPages),
		LeafPages:     uint64(st.LeafPages),
		OverflowPages: uint64(st.OverflowPages),
		Entries:       uint64(st.Entries),
	}, nil
}

// Info returns environment-level information.
func (e *Env) Info() (*Info, error) {
	if e.closed.Load() {
		return nil, opError("env_info", ErrEnvClosed)
	}
	info, err := e.env.Info(nil)
	if err != nil {
		return nil, translate("env_info", err)
	}
	return &Info{
		MapSize:    uint64(info.MapSize),
		SizeUsed:   uint64(info.Geo.Current),
		LastPgNo:   uint64(info.LastPNO),
		LastTxnID:  uint64(info.LastTxnID),
		MaxReaders: uint64(info.MaxReaders),
		PageSize:   uint64(info.PageSize),
	}, nil
}

// Sync flushes buffered writes to disk. With force the sync is
// synchronous; with nonblock the call returns immediately if another
// sync is in progress.
func (e *Env) Sync(force, nonblock bool) error {
	if e.closed.Load() {
		return opError("env_sync", ErrEnvClosed)
	}
	return translate("env_sync", e.env.Sync(force, nonblock))
}

// CloseDBI drops a cached named database handle. Rarely needed: handles
// stay valid for the life of the environment.
func (e *Env) CloseDBI(dbi DBI) {
	e.dbiMu.Lock()
	delete(e.dbis, dbi.name)
	e.dbiMu.Unlock()
}

func (e *Env) cachedDBI(name string) (DBI, bool) {
	e.dbiMu.RLock()
	dbi, ok := e.dbis[name]
	e.dbiMu.RUnlock()
	return dbi, ok
}

func (e *Env) promoteDBIs(dbis []DBI) {
	if len(dbis) == 0 {
		return
	}
	e.dbiMu.Lock()
	for _, dbi := range dbis {
		e.dbis[dbi.name] = dbi
	}
	e.dbiMu.Unlock()
}

func (e *Env) dropDBI(name string) {
	e.dbiMu.Lock()
	delete(e.dbis, name)
	e.dbiMu.Unlock()
}

// releaseTxn is called exactly once per transaction, from commit or
// abort teardown.
func (e *Env) releaseTxn(t *Txn) {
	if t.parent == nil {
		if t.readOnly {
			e.readers.Release(1)
		} else {
			e.writer.Release(1)
			runtime.UnlockOSThread()
		}
	}
	e.wg.Done()
}
