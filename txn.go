package mdbxkv

import (
	"fmt"
	"runtime"
	"time"

	"github.com/erigontech/mdbx-go/mdbx"
)

// PutFlags tune Txn.Put and Cursor.Put.
type PutFlags uint

const (
	// NoOverwrite fails with a KeyExist error if the key is present.
	NoOverwrite PutFlags = 1 << iota

	// NoDupData fails with a KeyExist error if the exact key/value pair
	// is present in a DupSort database.
	NoDupData

	// Append requires the key to sort after every existing key. Fast
	// path for bulk loads; out-of-order keys fail.
	Append

	// AppendDup is Append for duplicate values of one key.
	AppendDup

	// Reserve allocates space for the value without copying it. The
	// engine may hand back a buffer; the wrapper treats it as a plain
	// put of zeroed space.
	Reserve
)

// nativeReserve is the raw MDBX_RESERVE bit; the binding only exposes
// it through PutReserve.
const nativeReserve uint = 0x10000

func (f PutFlags) native() uint {
	var n uint
	if f&NoOverwrite != 0 {
		n |= mdbx.NoOverwrite
	}
	if f&NoDupData != 0 {
		n |= mdbx.NoDupData
	}
	if f&Append != 0 {
		n |= mdbx.Append
	}
	if f&AppendDup != 0 {
		n |= mdbx.AppendDup
	}
	if f&Reserve != 0 {
		n |= nativeReserve
	}
	return n
}

type txnState uint8

const (
	txnActive txnState = iota
	txnCommitted
	txnAborted
)

// Txn is one atomic unit of work against an Environment.
//
// A Txn is not safe for concurrent use by multiple goroutines, and a
// write Txn must stay on the goroutine that began it (the engine pins
// write transactions to an OS thread).
//
// Returned key and value slices point into engine-owned memory. They are
// valid only until the next mutating call on the same transaction and
// never after the transaction ends; copy them to keep them.
type Txn struct {
	env      *Env
	txn      *mdbx.Txn
	parent   *Txn
	readOnly bool

	state txnState

	// blocked is set while a nested child transaction is unresolved;
	// the parent may not touch the engine until the child commits or
	// aborts.
	blocked bool

	// child is the unresolved nested transaction, if any. Aborting the
	// parent resolves the whole subtree in the engine, so the wrapper
	// must invalidate these handles too.
	child *Txn

	// cursors opened under this transaction, closed on its end.
	cursors  map[uint64]*Cursor
	cursorID uint64

	// pendingDBIs are handles opened by this write transaction. They
	// are promoted to the environment cache only on commit; an abort
	// discards them, matching the engine's handle lifetime.
	pendingDBIs []DBI
}

func newTxn(e *Env, raw *mdbx.Txn, parent *Txn, readOnly bool) *Txn {
	t := &Txn{env: e, txn: raw, parent: parent, readOnly: readOnly}
	// Abort leaked transactions instead of wedging the writer gate
	// forever. The deferred-Abort pattern remains the supported path;
	// this is a backstop, and it logs loudly.
	runtime.SetFinalizer(t, (*Txn).finalize)
	return t
}

func (t *Txn) finalize() {
	if t.state != txnActive {
		return
	}
	t.env.log.Error("transaction leaked without Commit or Abort",
		"readonly", t.readOnly)
	if t.readOnly {
		t.Abort()
		return
	}
	// A write transaction is pinned to the thread that began it and the
	// finalizer runs elsewhere, so the engine handle must not be
	// touched. Release the wrapper's bookkeeping and leave the handle
	// to environment teardown.
	t.invalidateChildren()
	t.cursors = nil
	t.state = txnAborted
	t.pendingDBIs = nil
	if t.parent == nil {
		t.env.writer.Release(1)
	}
	t.env.wg.Done()
}

// usable fails fast before any engine call when the transaction cannot
// legally perform an operation.
func (t *Txn) usable(op string) error {
	if t.state != txnActive {
		return opError(op, ErrTxnDone)
	}
	if t.blocked {
		return opError(op, ErrTxnBlocked)
	}
	return nil
}

func (t *Txn) writable(op string) error {
	if err := t.usable(op); err != nil {
		return err
	}
	if t.readOnly {
		return opError(op, ErrTxnReadOnly)
	}
	return nil
}

// ID returns the engine-assigned transaction identifier.
func (t *Txn) ID() uint64 { return t.txn.ID() }

// IsReadOnly reports the transaction kind.
func (t *Txn) IsReadOnly() bool { return t.readOnly }

// BeginChild starts a nested write transaction. The parent is blocked
// from engine calls until the child commits or aborts. A committed
// child's writes become visible to the parent only; they reach disk when
// the whole ancestor chain commits.
func (t *Txn) BeginChild() (*Txn, error) {
	if err := t.writable("begin_child"); err != nil {
		return nil, err
	}
	raw, err := t.env.env.BeginTxn(t.txn, 0)
	if err != nil {
		return nil, translate("begin_child", err)
	}
	t.blocked = true
	t.env.wg.Add(1)
	child := newTxn(t.env, raw, t, false)
	t.child = child
	return child, nil
}

// OpenDBI opens (and with Create possibly creates) a named database. The
// handle is cached on the environment once this transaction commits;
// prefer reusing the returned value over reopening.
func (t *Txn) OpenDBI(name string, flags DBIFlags) (DBI, error) {
	if err := t.usable("open_dbi"); err != nil {
		return DBI{}, err
	}
	if dbi, ok := t.env.cachedDBI(name); ok {
		if want := flags &^ Create; want != dbi.flags&^Create {
			return DBI{}, &Error{
				Kind: KindIncompatible,
				Op:   "open_dbi",
				Err:  fmt.Errorf("database %q already open with different flags", name),
			}
		}
		return dbi, nil
	}
	if flags&Create != 0 && t.readOnly {
		return DBI{}, opError("open_dbi", ErrTxnReadOnly)
	}
	raw, err := t.txn.OpenDBI(name, flags.native(), nil, nil)
	if err != nil {
		return DBI{}, translate("open_dbi", err)
	}
	dbi := DBI{name: name, dbi: raw, flags: flags}
	if t.readOnly {
		// Nothing to roll back: the handle already existed.
		t.env.promoteDBIs([]DBI{dbi})
	} else {
		t.pendingDBIs = append(t.pendingDBIs, dbi)
	}
	return dbi, nil
}

// OpenRoot opens the unnamed root database.
func (t *Txn) OpenRoot() (DBI, error) {
	if err := t.usable("open_root"); err != nil {
		return DBI{}, err
	}
	raw, err := t.txn.OpenRoot(0)
	if err != nil {
		return DBI{}, translate("open_root", err)
	}
	return DBI{dbi: raw}, nil
}

// Get returns the value stored under key, or a NotFound error. In a
// DupSort database it returns the first duplicate.
func (t *Txn) Get(dbi DBI, key []byte) ([]byte, error) {
	if err := t.usable("txn_get"); err != nil {
		return nil, err
	}
	v, err := t.txn.Get(dbi.dbi, key)
	if err != nil {
		return nil, translate("txn_get", err)
	}
	return v, nil
}

// Has reports whether key exists without returning its value.
func (t *Txn) Has(dbi DBI, key []byte) (bool, error) {
	_, err := t.Get(dbi, key)
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Put stores a key/value pair. Write transactions only.
func (t *Txn) Put(dbi DBI, key, val []byte, flags PutFlags) error {
	if err := t.writable("txn_put"); err != nil {
		return err
	}
	return translate("txn_put", t.txn.Put(dbi.dbi, key, val, flags.native()))
}

// Del removes key. In a DupSort database a non-nil val selects the exact
// duplicate to remove; nil removes all duplicates of key. Missing keys
// return a NotFound error.
func (t *Txn) Del(dbi DBI, key, val []byte) error {
	if err := t.writable("txn_del"); err != nil {
		return err
	}
	return translate("txn_del", t.txn.Del(dbi.dbi, key, val))
}

// Drop empties a named database, and with del removes it entirely. The
// cached handle is invalidated when del is set.
func (t *Txn) Drop(dbi DBI, del bool) error {
	if err := t.writable("txn_drop"); err != nil {
		return err
	}
	if err := t.txn.Drop(dbi.dbi, del); err != nil {
		return translate("txn_drop", err)
	}
	if del {
		t.env.dropDBI(dbi.name)
	}
	return nil
}

// Sequence reads, and with increment > 0 advances, the database's
// persistent sequence counter.
func (t *Txn) Sequence(dbi DBI, increment uint64) (uint64, error) {
	op := "txn_sequence"
	if increment > 0 {
		if err := t.writable(op); err != nil {
			return 0, err
		}
	} else if err := t.usable(op); err != nil {
		return 0, err
	}
	v, err := t.txn.Sequence(dbi.dbi, increment)
	if err != nil {
		return 0, translate(op, err)
	}
	return v, nil
}

// Stat returns statistics for one database.
func (t *Txn) Stat(dbi DBI) (*Stat, error) {
	if err := t.usable("txn_stat"); err != nil {
		return nil, err
	}
	st, err := t.txn.StatDBI(dbi.dbi)
	if err != nil {
		return nil, translate("txn_stat", err)
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

// slowCommit is the latency above which a commit is logged.
const slowCommit = 10 * time.Second

// Commit resolves the transaction. For a nested transaction the writes
// become visible to the parent; for a top-level write transaction they
// become durable per the environment's durability mode. The transaction
// is terminal afterwards, and every cursor opened under it is closed.
func (t *Txn) Commit() error {
	if t.state != txnActive {
		return opError("txn_commit", ErrTxnDone)
	}
	if t.blocked {
		return opError("txn_commit", ErrTxnBlocked)
	}
	t.closeCursors()
	opened := t.pendingDBIs
	latency, err := t.txn.Commit()
	// The engine resolves the transaction even when commit fails.
	t.teardown(txnCommitted)
	if err != nil {
		t.state = txnAborted
		return translate("txn_commit", err)
	}
	if t.parent != nil {
		// Handles survive only if the whole ancestor chain commits.
		t.parent.pendingDBIs = append(t.parent.pendingDBIs, opened...)
	} else {
		t.env.promoteDBIs(opened)
	}
	if latency.Whole > slowCommit {
		t.env.log.Info("slow commit", "whole", latency.Whole)
	}
	return nil
}

// Abort discards the transaction's writes and resolves it. Idempotent:
// aborting a terminal transaction is a no-op. Deferred Abort gives
// auto-rollback on any exit path.
func (t *Txn) Abort() {
	if t.state != txnActive {
		return
	}
	// An unresolved child subtree is discarded with its parent. The
	// engine aborts the nested handles as part of the parent abort, so
	// only the wrapper state is torn down for them.
	t.invalidateChildren()
	t.closeCursors()
	t.txn.Abort()
	t.teardown(txnAborted)
}

// invalidateChildren marks every unresolved descendant terminal without
// touching its engine handle: the engine resolves nested transactions
// together with the ancestor that is being aborted. Cursors of those
// descendants are freed by the engine too, so they are only flagged
// closed here.
func (t *Txn) invalidateChildren() {
	c := t.child
	t.child = nil
	if c == nil || c.state != txnActive {
		return
	}
	c.invalidateChildren()
	for _, cur := range c.cursors {
		cur.closed = true
	}
	c.cursors = nil
	c.state = txnAborted
	c.pendingDBIs = nil
	runtime.SetFinalizer(c, nil)
	c.env.releaseTxn(c)
}

// teardown runs exactly once per transaction, right after the engine
// handle is resolved.
func (t *Txn) teardown(final txnState) {
	t.state = final
	t.pendingDBIs = nil
	runtime.SetFinalizer(t, nil)
	if t.parent != nil {
		t.parent.blocked = false
		t.parent.child = nil
	}
	t.env.releaseTxn(t)
}

func (t *Txn) closeCursors() {
	for _, c := range t.cursors {
		c.invalidate()
	}
	t.cursors = nil
}
