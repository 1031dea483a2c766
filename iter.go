package mdbxkv

import "bytes"

// Iterator walks a slice of one database in key order. Next returns
// nil, nil, nil once the slice is exhausted; Close releases the
// underlying cursor. Ending the owning transaction also ends the
// iterator.
type Iterator struct {
	c       *Cursor
	from    []byte
	to      []byte
	prefix  []byte
	reverse bool
	started bool
	done    bool
}

// Range iterates keys in [from, to) in ascending order. A nil from
// starts at the first key; a nil to runs to the end.
func (t *Txn) Range(dbi DBI, from, to []byte) (*Iterator, error) {
	c, err := t.Cursor(dbi)
	if err != nil {
		return nil, err
	}
	return &Iterator{c: c, from: from, to: to}, nil
}

// RangeReverse iterates keys in (to, from] in descending order,
// starting at the last key <= from. A nil from starts at the last key;
// a nil to runs to the beginning.
func (t *Txn) RangeReverse(dbi DBI, from, to []byte) (*Iterator, error) {
	c, err := t.Cursor(dbi)
	if err != nil {
		return nil, err
	}
	return &Iterator{c: c, from: from, to: to, reverse: true}, nil
}

// Prefix iterates every key that starts with prefix, in ascending
// order.
func (t *Txn) Prefix(dbi DBI, prefix []byte) (*Iterator, error) {
	c, err := t.Cursor(dbi)
	if err != nil {
		return nil, err
	}
	return &Iterator{c: c, prefix: prefix}, nil
}

func (it *Iterator) first() ([]byte, []byte, error) {
	if it.reverse {
		if it.from == nil {
			return it.c.Last()
		}
		// Seek lands on the first key >= from; descending starts at
		// the last key <= from.
		k, v, err := it.c.Seek(it.from)
		if IsNotFound(err) {
			return it.c.Last()
		}
		if err != nil {
			return nil, nil, err
		}
		if !bytes.Equal(k, it.from) {
			return it.c.Prev()
		}
		return k, v, nil
	}
	if it.prefix != nil {
		return it.c.Seek(it.prefix)
	}
	if it.from != nil {
		return it.c.Seek(it.from)
	}
	return it.c.First()
}

// Next returns the next pair, or nil, nil, nil when the slice is
// exhausted. The returned slices follow cursor lifetime rules.
func (it *Iterator) Next() ([]byte, []byte, error) {
	if it.done {
		return nil, nil, nil
	}
	var k, v []byte
	var err error
	if !it.started {
		it.started = true
		k, v, err = it.first()
	} else if it.reverse {
		k, v, err = it.c.Prev()
	} else {
		k, v, err = it.c.Next()
	}
	if IsNotFound(err) {
		it.done = true
		return nil, nil, nil
	}
	if err != nil {
		it.done = true
		return nil, nil, err
	}
	if it.past(k) {
		it.done = true
		return nil, nil, nil
	}
	return k, v, nil
}

func (it *Iterator) past(k []byte) bool {
	if it.reverse {
		return it.to != nil && bytes.Compare(k, it.to) <= 0
	}
	if it.prefix != nil {
		return !bytes.HasPrefix(k, it.prefix)
	}
	return it.to != nil && bytes.Compare(k, it.to) >= 0
}

// Close releases the iterator's cursor. Safe to call more than once.
func (it *Iterator) Close() {
	it.done = true
	it.c.Close()
}

// ForEach calls fn for every pair in the database, in key order. A
// non-nil error from fn stops the walk and is returned.
func (t *Txn) ForEach(dbi DBI, fn func(k, v []byte) error) error {
	return t.walk(dbi, nil, fn)
}

// ForPrefix calls fn for every pair whose key starts with prefix.
func (t *Txn) ForPrefix(dbi DBI, prefix []byte, fn func(k, v []byte) error) error {
	return t.walk(dbi, prefix, fn)
}

func (t *Txn) walk(dbi DBI, prefix []byte, fn func(k, v []byte) error) error {
	it, err := t.Prefix(dbi, prefix)
	if err != nil {
		return err
	}
	defer it.Close()
	for {
		k, v, err := it.Next()
		if err != nil {
			return err
		}
		if k == nil {
			return nil
		}
		if err := fn(k, v); err != nil {
			return err
		}
	}
}
