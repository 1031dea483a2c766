package mdbxkv

import (
	"github.com/erigontech/mdbx-go/mdbx"
)

// Cursor navigates one database inside one transaction. It is bound to
// the transaction that opened it and becomes invalid when that
// transaction ends; Close is then a no-op.
type Cursor struct {
	txn    *Txn
	dbi    DBI
	c      *mdbx.Cursor
	id     uint64
	closed bool
}

// Cursor opens a cursor over dbi.
func (t *Txn) Cursor(dbi DBI) (*Cursor, error) {
	if err := t.usable("cursor_open"); err != nil {
		return nil, err
	}
	raw, err := t.txn.OpenCursor(dbi.dbi)
	if err != nil {
		return nil, translate("cursor_open", err)
	}
	t.cursorID++
	c := &Cursor{txn: t, dbi: dbi, c: raw, id: t.cursorID}
	if t.cursors == nil {
		t.cursors = make(map[uint64]*Cursor)
	}
	t.cursors[c.id] = c
	return c, nil
}

// Close releases the cursor. Safe to call more than once and after the
// owning transaction has ended.
func (c *Cursor) Close() {
	if c.closed {
		return
	}
	c.c.Close()
	c.closed = true
	if c.txn.cursors != nil {
		delete(c.txn.cursors, c.id)
	}
}

// invalidate runs from the owning transaction's teardown, before the
// engine handle is resolved, so the raw cursor is still live here.
func (c *Cursor) invalidate() {
	if c.closed {
		return
	}
	c.c.Close()
	c.closed = true
}

func (c *Cursor) usable(op string) error {
	if c.closed {
		return opError(op, ErrCursorClosed)
	}
	return c.txn.usable(op)
}

func (c *Cursor) writable(op string) error {
	if err := c.usable(op); err != nil {
		return err
	}
	if c.txn.readOnly {
		return opError(op, ErrTxnReadOnly)
	}
	return nil
}

func (c *Cursor) get(op string, setKey, setVal []byte, mdbxOp uint) ([]byte, []byte, error) {
	if err := c.usable(op); err != nil {
		return nil, nil, err
	}
	k, v, err := c.c.Get(setKey, setVal, mdbxOp)
	if err != nil {
		return nil, nil, translate(op, err)
	}
	return k, v, nil
}

// First positions at the first key. Empty databases return a NotFound
// error.
func (c *Cursor) First() ([]byte, []byte, error) {
	return c.get("cursor_first", nil, nil, mdbx.First)
}

// Last positions at the last key.
func (c *Cursor) Last() ([]byte, []byte, error) {
	return c.get("cursor_last", nil, nil, mdbx.Last)
}

// Next moves one entry forward. In a DupSort database it walks every
// duplicate before advancing the key. Exhaustion returns a NotFound
// error.
func (c *Cursor) Next() ([]byte, []byte, error) {
	return c.get("cursor_next", nil, nil, mdbx.Next)
}

// Prev moves one entry back.
func (c *Cursor) Prev() ([]byte, []byte, error) {
	return c.get("cursor_prev", nil, nil, mdbx.Prev)
}

// Current re-reads the entry under the cursor. An unpositioned cursor
// returns a NotFound error.
func (c *Cursor) Current() ([]byte, []byte, error) {
	return c.get("cursor_current", nil, nil, mdbx.GetCurrent)
}

// Seek positions at the first key >= seek.
func (c *Cursor) Seek(seek []byte) ([]byte, []byte, error) {
	return c.get("cursor_seek", seek, nil, mdbx.SetRange)
}

// SeekExact positions at exactly key, or fails with a NotFound error.
func (c *Cursor) SeekExact(key []byte) ([]byte, []byte, error) {
	return c.get("cursor_seek_exact", key, nil, mdbx.SetKey)
}

// FirstDup moves to the first duplicate of the current key and returns
// the value. DupSort databases only.
func (c *Cursor) FirstDup() ([]byte, error) {
	_, v, err := c.get("cursor_first_dup", nil, nil, mdbx.FirstDup)
	return v, err
}

// LastDup moves to the last duplicate of the current key.
func (c *Cursor) LastDup() ([]byte, error) {
	_, v, err := c.get("cursor_last_dup", nil, nil, mdbx.LastDup)
	return v, err
}

// NextDup moves to the next duplicate of the current key; exhaustion of
// the key's duplicates returns a NotFound error.
func (c *Cursor) NextDup() ([]byte, []byte, error) {
	return c.get("cursor_next_dup", nil, nil, mdbx.NextDup)
}

// PrevDup moves to the previous duplicate of the current key.
func (c *Cursor) PrevDup() ([]byte, []byte, error) {
	return c.get("cursor_prev_dup", nil, nil, mdbx.PrevDup)
}

// NextNoDup skips the remaining duplicates and moves to the first
// duplicate of the next key.
func (c *Cursor) NextNoDup() ([]byte, []byte, error) {
	return c.get("cursor_next_no_dup", nil, nil, mdbx.NextNoDup)
}

// PrevNoDup moves to the last entry of the previous key.
func (c *Cursor) PrevNoDup() ([]byte, []byte, error) {
	return c.get("cursor_prev_no_dup", nil, nil, mdbx.PrevNoDup)
}

// SeekBothExact positions at the exact key/value pair in a DupSort
// database.
func (c *Cursor) SeekBothExact(key, val []byte) ([]byte, []byte, error) {
	return c.get("cursor_seek_both_exact", key, val, mdbx.GetBoth)
}

// SeekBothRange positions at key and its first duplicate >= val,
// returning that duplicate. DupSort databases only.
func (c *Cursor) SeekBothRange(key, val []byte) ([]byte, error) {
	_, v, err := c.get("cursor_seek_both_range", key, val, mdbx.GetBothRange)
	return v, err
}

// Put stores a pair through the cursor and leaves the cursor on it.
func (c *Cursor) Put(key, val []byte, flags PutFlags) error {
	if err := c.writable("cursor_put"); err != nil {
		return err
	}
	return translate("cursor_put", c.c.Put(key, val, flags.native()))
}

// Del removes the entry under the cursor.
func (c *Cursor) Del() error {
	if err := c.writable("cursor_del"); err != nil {
		return err
	}
	return translate("cursor_del", c.c.Del(mdbx.Current))
}

// DelAllDups removes every duplicate of the current key.
func (c *Cursor) DelAllDups() error {
	if err := c.writable("cursor_del_dups"); err != nil {
		return err
	}
	return translate("cursor_del_dups", c.c.Del(mdbx.AllDups))
}

// Count returns the number of duplicates of the current key.
func (c *Cursor) Count() (uint64, error) {
	if err := c.usable("cursor_count"); err != nil {
		return 0, err
	}
	n, err := c.c.Count()
	if err != nil {
		return 0, translate("cursor_count", err)
	}
	return n, nil
}
