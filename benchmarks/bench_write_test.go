package benchmarks

import (
	"context"
	"testing"

	"github.com/kvwrap/mdbxkv"
	"github.com/tecbot/gorocksdb"
	bolt "go.etcd.io/bbolt"
)

// BenchmarkWriteSeq measures sequential inserts, one batch per
// transaction.
func BenchmarkWriteSeq(b *testing.B) {
	const batch = 1000

	b.Run("mdbxkv", func(b *testing.B) {
		env, dbi := openMdbxkv(b)
		keys, val := benchKeys(b, b.N)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i += batch {
			err := env.Update(context.Background(), func(txn *mdbxkv.Txn) error {
				for j := i; j < i+batch && j < b.N; j++ {
					if err := txn.Put(dbi, keys[j], val, mdbxkv.Append); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("bolt", func(b *testing.B) {
		db := openBolt(b)
		keys, val := benchKeys(b, b.N)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i += batch {
			err := db.Update(func(tx *bolt.Tx) error {
				bk := tx.Bucket([]byte(benchTable))
				for j := i; j < i+batch && j < b.N; j++ {
					if err := bk.Put(keys[j], val); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("rocksdb", func(b *testing.B) {
		db := openRocks(b)
		keys, val := benchKeys(b, b.N)
		wo := gorocksdb.NewDefaultWriteOptions()
		defer wo.Destroy()
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if err := db.Put(wo, keys[i], val); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkWriteSingle measures one key per transaction, the worst case
// for commit overhead.
func BenchmarkWriteSingle(b *testing.B) {
	b.Run("mdbxkv", func(b *testing.B) {
		env, dbi := openMdbxkv(b)
		keys, val := benchKeys(b, b.N)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			err := env.Update(context.Background(), func(txn *mdbxkv.Txn) error {
				return txn.Put(dbi, keys[i], val, 0)
			})
			if err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("bolt", func(b *testing.B) {
		db := openBolt(b)
		keys, val := benchKeys(b, b.N)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			err := db.Update(func(tx *bolt.Tx) error {
				return tx.Bucket([]byte(benchTable)).Put(keys[i], val)
			})
			if err != nil {
				b.Fatal(err)
			}
		}
	})
}
