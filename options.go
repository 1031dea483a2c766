package mdbxkv

import (
	"github.com/c2h5oh/datasize"
	"github.com/erigontech/mdbx-go/mdbx"
	"github.com/ledgerwatch/log/v3"
)

// Durability selects how aggressively commits are flushed to disk.
type Durability uint8

const (
	// Durable syncs data and meta pages on every commit. Default.
	Durable Durability = iota

	// NoMetaSync syncs data but defers the meta page sync to the next
	// commit or explicit Sync. A crash can lose the last transaction.
	NoMetaSync

	// SafeNoSync defers syncing entirely but keeps commits steady; a
	// crash rolls back to the last steady commit.
	SafeNoSync

	// UtterlyNoSync performs no syncing at all. Fastest and unsafe.
	UtterlyNoSync
)

func (d Durability) envFlags() uint {
	switch d {
	case NoMetaSync:
		return mdbx.NoMetaSync
	case SafeNoSync:
		return mdbx.SafeNoSync
	case UtterlyNoSync:
		return mdbx.UtterlyNoSync
	}
	return mdbx.EnvDefaults
}

// Default limits, matching what the engine would pick for a small
// single-process database.
const (
	DefaultMaxDBs     = 100
	DefaultMaxReaders = 256
	defaultPageSize   = 4 * 1024
)

// Opts configures an Environment. Zero value is not usable; start from
// New and chain setters, then call Open.
type Opts struct {
	path        string
	label       string
	mapSize     datasize.ByteSize
	growthStep  datasize.ByteSize
	pageSize    int
	maxReaders  uint64
	maxDBs      uint64
	durability  Durability
	readonly    bool
	exclusive   bool
	noReadahead bool
	writeMap    bool
	roTxsLimit  int64
	log         log.Logger
}

// New returns the default options: 2 GB map, durable commits, engine
// defaults everywhere else.
func New() Opts {
	return Opts{
		label:      "mdbxkv",
		mapSize:    2 * datasize.GB,
		growthStep: 16 * datasize.MB,
		pageSize:   defaultPageSize,
		maxReaders: DefaultMaxReaders,
		maxDBs:     DefaultMaxDBs,
		log:        log.New(),
	}
}

// Path sets the directory holding the data and lock files. Required.
func (o Opts) Path(p string) Opts { o.path = p; return o }

// Label names this environment in logs; one process may open several
// environments at distinct locations.
func (o Opts) Label(l string) Opts { o.label = l; return o }

// MapSize sets the upper limit for the datafile size.
func (o Opts) MapSize(sz datasize.ByteSize) Opts { o.mapSize = sz; return o }

// GrowthStep sets the datafile growth increment.
func (o Opts) GrowthStep(sz datasize.ByteSize) Opts { o.growthStep = sz; return o }

// PageSize sets the page size for a newly created database.
func (o Opts) PageSize(n int) Opts { o.pageSize = n; return o }

// MaxReaders sets the reader slot table size.
func (o Opts) MaxReaders(n uint64) Opts { o.maxReaders = n; return o }

// MaxDBs sets the maximum number of named databases.
func (o Opts) MaxDBs(n uint64) Opts { o.maxDBs = n; return o }

// Durability selects the sync mode for commits.
func (o Opts) Durability(d Durability) Opts { o.durability = d; return o }

// Readonly opens the environment without write access.
func (o Opts) Readonly() Opts { o.readonly = true; return o }

// Exclusive opens in the engine's monopolistic mode.
func (o Opts) Exclusive() Opts { o.exclusive = true; return o }

// NoReadahead disables OS readahead, useful for databases much larger
// than RAM with random access patterns.
func (o Opts) NoReadahead() Opts { o.noReadahead = true; return o }

// WriteMap maps the datafile writable. Faster writes, fewer safety nets.
func (o Opts) WriteMap() Opts { o.writeMap = true; return o }

// RoTxsLimit caps concurrently active read-only transactions. Zero means
// the max-readers value.
func (o Opts) RoTxsLimit(n int64) Opts { o.roTxsLimit = n; return o }

// Logger sets the structured logger for open/close and slow-commit
// reporting.
func (o Opts) Logger(l log.Logger) Opts { o.log = l; return o }

func (o Opts) envFlags() uint {
	flags := o.durability.envFlags()
	if o.readonly {
		flags |= mdbx.Readonly
	}
	if o.exclusive {
		flags |= mdbx.Exclusive
	}
	if o.noReadahead {
		flags |= mdbx.NoReadahead
	}
	if o.writeMap {
		flags |= mdbx.WriteMap
	}
	return flags
}
