package mdbxkv

import (
	"github.com/erigontech/mdbx-go/mdbx"
)

// DBIFlags configure a named database when it is first created.
type DBIFlags uint

const (
	// Create creates the database if it does not exist yet.
	Create DBIFlags = 1 << iota

	// DupSort allows multiple sorted values per key.
	DupSort

	// IntegerKey treats keys as native-width integers. Use the codec in
	// this package to produce byte-comparable keys.
	IntegerKey

	// ReverseKey compares keys back to front.
	ReverseKey

	// IntegerDup treats duplicate values as fixed-size integers.
	// Implies DupSort.
	IntegerDup

	// DupFixed stores fixed-size duplicate values. Implies DupSort.
	DupFixed
)

// Raw MDBX flag bits for the integer-key modes the binding does not
// export.
const (
	nativeIntegerKey uint = 0x08
	nativeIntegerDup uint = 0x20
)

func (f DBIFlags) native() uint {
	var n uint
	if f&Create != 0 {
		n |= mdbx.Create
	}
	if f&DupSort != 0 {
		n |= mdbx.DupSort
	}
	if f&IntegerKey != 0 {
		n |= nativeIntegerKey
	}
	if f&ReverseKey != 0 {
		n |= mdbx.ReverseKey
	}
	if f&IntegerDup != 0 {
		n |= nativeIntegerDup | mdbx.DupSort
	}
	if f&DupFixed != 0 {
		n |= mdbx.DupFixed | mdbx.DupSort
	}
	return n
}

// DBI is a handle to a named sub-keyspace. It is a small value: copy it
// freely. A handle obtained inside a transaction becomes usable by later
// transactions once that transaction commits, and stays valid until the
// environment closes.
type DBI struct {
	name  string
	dbi   mdbx.DBI
	flags DBIFlags
}

// Name returns the database name, empty for the root database.
func (d DBI) Name() string { return d.name }

// Flags returns the creation flags the handle was opened with.
func (d DBI) Flags() DBIFlags { return d.flags }

// HasDupSort reports whether the database holds sorted duplicates.
func (d DBI) HasDupSort() bool {
	return d.flags&(DupSort|IntegerDup|DupFixed) != 0
}
