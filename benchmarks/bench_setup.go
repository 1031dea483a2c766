// Package benchmarks compares mdbxkv against other embedded key-value
// stores on the same workloads. Run with:
//
//	go test -bench=. ./benchmarks
package benchmarks

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/kvwrap/mdbxkv"
	"github.com/tecbot/gorocksdb"
	bolt "go.etcd.io/bbolt"
)

const (
	benchTable = "bench"
	valueSize  = 64
)

var (
	cacheMu     sync.Mutex
	sampleCache = make(map[int][][]byte)
)

// benchKeys returns size deterministic 8-byte keys plus a shared random
// value buffer. Keys are big-endian counters, so sequential inserts are
// in key order.
func benchKeys(b *testing.B, size int) ([][]byte, []byte) {
	b.Helper()
	cacheMu.Lock()
	keys, ok := sampleCache[size]
	cacheMu.Unlock()
	if !ok {
		keys = make([][]byte, size)
		for i := range keys {
			k := make([]byte, 8)
			binary.BigEndian.PutUint64(k, uint64(i))
			keys[i] = k
		}
		cacheMu.Lock()
		sampleCache[size] = keys
		cacheMu.Unlock()
	}
	val := make([]byte, valueSize)
	if _, err := rand.Read(val); err != nil {
		b.Fatal(err)
	}
	return keys, val
}

func openMdbxkv(b *testing.B) (*mdbxkv.Env, mdbxkv.DBI) {
	b.Helper()
	env, err := mdbxkv.New().
		Path(b.TempDir()).
		Label("bench").
		MapSize(1 << 32).
		Durability(mdbxkv.UtterlyNoSync).
		Open()
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(env.Close)

	txn, err := env.TryBeginRw()
	if err != nil {
		b.Fatal(err)
	}
	dbi, err := txn.OpenDBI(benchTable, mdbxkv.Create)
	if err != nil {
		b.Fatal(err)
	}
	if err := txn.Commit(); err != nil {
		b.Fatal(err)
	}
	return env, dbi
}

func openBolt(b *testing.B) *bolt.DB {
	b.Helper()
	db, err := bolt.Open(b.TempDir()+"/bolt.db", 0644, &bolt.Options{NoSync: true})
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { db.Close() })

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(benchTable))
		return err
	})
	if err != nil {
		b.Fatal(err)
	}
	return db
}

func openRocks(b *testing.B) *gorocksdb.DB {
	b.Helper()
	opts := gorocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)
	db, err := gorocksdb.OpenDb(opts, b.TempDir()+"/rocks")
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() {
		db.Close()
		opts.Destroy()
	})
	return db
}

// fillMdbxkv loads size entries in one write transaction.
func fillMdbxkv(b *testing.B, env *mdbxkv.Env, dbi mdbxkv.DBI, keys [][]byte, val []byte) {
	b.Helper()
	txn, err := env.TryBeginRw()
	if err != nil {
		b.Fatal(err)
	}
	for _, k := range keys {
		if err := txn.Put(dbi, k, val, mdbxkv.Append); err != nil {
			b.Fatal(err)
		}
	}
	if err := txn.Commit(); err != nil {
		b.Fatal(err)
	}
}

func fillBolt(b *testing.B, db *bolt.DB, keys [][]byte, val []byte) {
	b.Helper()
	err := db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket([]byte(benchTable))
		for _, k := range keys {
			if err := bk.Put(k, val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		b.Fatal(err)
	}
}

func fillRocks(b *testing.B, db *gorocksdb.DB, keys [][]byte, val []byte) {
	b.Helper()
	wo := gorocksdb.NewDefaultWriteOptions()
	defer wo.Destroy()
	batch := gorocksdb.NewWriteBatch()
	defer batch.Destroy()
	for _, k := range keys {
		batch.Put(k, val)
	}
	if err := db.Write(wo, batch); err != nil {
		b.Fatal(err)
	}
}
