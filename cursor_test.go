package mdbxkv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// dupBase seeds a DupSort database with interleaved duplicates, in the
// shape most navigation tests need.
func dupBase(t *testing.T) (*Env, *Txn, *Cursor) {
	t.Helper()
	env := testEnv(t)
	dbi := testDBI(t, env, "dup", DupSort)

	txn, err := env.BeginRw(context.Background())
	require.NoError(t, err)
	t.Cleanup(txn.Abort)

	c, err := txn.Cursor(dbi)
	require.NoError(t, err)

	require.NoError(t, c.Put([]byte("key1"), []byte("value1.1"), 0))
	require.NoError(t, c.Put([]byte("key3"), []byte("value3.1"), 0))
	require.NoError(t, c.Put([]byte("key1"), []byte("value1.3"), 0))
	require.NoError(t, c.Put([]byte("key3"), []byte("value3.3"), 0))
	return env, txn, c
}

func TestCursorOrder(t *testing.T) {
	env := testEnv(t)
	dbi := testDBI(t, env, "main", 0)
	ctx := context.Background()

	// Inserted out of order, walked in order.
	require.NoError(t, env.Update(ctx, func(txn *Txn) error {
		for _, k := range []string{"c", "a", "d", "b"} {
			if err := txn.Put(dbi, []byte(k), []byte("v"), 0); err != nil {
				return err
			}
		}
		return nil
	}))

	err := env.View(ctx, func(txn *Txn) error {
		c, err := txn.Cursor(dbi)
		require.NoError(t, err)
		defer c.Close()

		var keys []string
		k, _, err := c.First()
		for err == nil {
			keys = append(keys, string(k))
			k, _, err = c.Next()
		}
		require.True(t, IsNotFound(err))
		require.Equal(t, []string{"a", "b", "c", "d"}, keys)

		k, _, err = c.Last()
		require.NoError(t, err)
		require.Equal(t, "d", string(k))
		k, _, err = c.Prev()
		require.NoError(t, err)
		require.Equal(t, "c", string(k))
		return nil
	})
	require.NoError(t, err)
}

func TestCursorSeek(t *testing.T) {
	env := testEnv(t)
	dbi := testDBI(t, env, "main", 0)
	ctx := context.Background()

	require.NoError(t, env.Update(ctx, func(txn *Txn) error {
		for _, k := range []string{"aa", "cc", "ee"} {
			if err := txn.Put(dbi, []byte(k), []byte("v"), 0); err != nil {
				return err
			}
		}
		return nil
	}))

	err := env.View(ctx, func(txn *Txn) error {
		c, err := txn.Cursor(dbi)
		require.NoError(t, err)
		defer c.Close()

		k, _, err := c.Seek([]byte("bb"))
		require.NoError(t, err)
		require.Equal(t, "cc", string(k))

		_, _, err = c.Seek([]byte("ff"))
		require.True(t, IsNotFound(err))

		k, _, err = c.SeekExact([]byte("ee"))
		require.NoError(t, err)
		require.Equal(t, "ee", string(k))

		_, _, err = c.SeekExact([]byte("bb"))
		require.True(t, IsNotFound(err))
		return nil
	})
	require.NoError(t, err)
}

func TestCursorCurrentUnpositioned(t *testing.T) {
	env := testEnv(t)
	dbi := testDBI(t, env, "main", 0)

	err := env.View(context.Background(), func(txn *Txn) error {
		c, err := txn.Cursor(dbi)
		require.NoError(t, err)
		defer c.Close()
		_, _, err = c.Current()
		require.Error(t, err)
		return nil
	})
	require.NoError(t, err)
}

func TestDupNavigation(t *testing.T) {
	_, _, c := dupBase(t)

	k, v, err := c.First()
	require.NoError(t, err)
	require.Equal(t, "key1", string(k))
	require.Equal(t, "value1.1", string(v))

	k, v, err = c.NextDup()
	require.NoError(t, err)
	require.Equal(t, "key1", string(k))
	require.Equal(t, "value1.3", string(v))

	_, _, err = c.NextDup()
	require.True(t, IsNotFound(err))

	k, v, err = c.NextNoDup()
	require.NoError(t, err)
	require.Equal(t, "key3", string(k))
	require.Equal(t, "value3.1", string(v))

	v, err = c.LastDup()
	require.NoError(t, err)
	require.Equal(t, "value3.3", string(v))

	v, err = c.FirstDup()
	require.NoError(t, err)
	require.Equal(t, "value3.1", string(v))

	k, _, err = c.PrevNoDup()
	require.NoError(t, err)
	require.Equal(t, "key1", string(k))
}

func TestDupCount(t *testing.T) {
	_, _, c := dupBase(t)

	_, _, err := c.SeekExact([]byte("key1"))
	require.NoError(t, err)
	n, err := c.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(2), n)
}

func TestSeekBoth(t *testing.T) {
	_, _, c := dupBase(t)

	// Exact key, range match on the value.
	v, err := c.SeekBothRange([]byte("key3"), []byte("value3.2"))
	require.NoError(t, err)
	require.Equal(t, "value3.3", string(v))

	_, err = c.SeekBothRange([]byte("key2"), []byte("value"))
	require.True(t, IsNotFound(err))

	k, v, err := c.SeekBothExact([]byte("key1"), []byte("value1.3"))
	require.NoError(t, err)
	require.Equal(t, "key1", string(k))
	require.Equal(t, "value1.3", string(v))

	_, _, err = c.SeekBothExact([]byte("key1"), []byte("value1.2"))
	require.True(t, IsNotFound(err))
}

func TestDupPutFlags(t *testing.T) {
	_, _, c := dupBase(t)

	err := c.Put([]byte("key1"), []byte("value1.1"), NoDupData)
	require.True(t, IsKeyExist(err))
	require.NoError(t, c.Put([]byte("key1"), []byte("value1.2"), NoDupData))
}

func TestCursorDelete(t *testing.T) {
	_, txn, c := dupBase(t)
	dbi := c.dbi

	_, _, err := c.SeekBothExact([]byte("key1"), []byte("value1.1"))
	require.NoError(t, err)
	require.NoError(t, c.Del())

	v, err := txn.Get(dbi, []byte("key1"))
	require.NoError(t, err)
	require.Equal(t, "value1.3", string(v))

	_, _, err = c.SeekExact([]byte("key3"))
	require.NoError(t, err)
	require.NoError(t, c.DelAllDups())
	_, err = txn.Get(dbi, []byte("key3"))
	require.True(t, IsNotFound(err))
}

func TestCursorClosedByTxnEnd(t *testing.T) {
	env := testEnv(t)
	dbi := testDBI(t, env, "main", 0)

	txn, err := env.BeginRo(context.Background())
	require.NoError(t, err)
	c, err := txn.Cursor(dbi)
	require.NoError(t, err)
	txn.Abort()

	_, _, err = c.First()
	require.ErrorIs(t, err, ErrCursorClosed)
	c.Close() // still safe
}

func TestCursorWriteOnReadOnlyTxn(t *testing.T) {
	env := testEnv(t)
	dbi := testDBI(t, env, "main", 0)

	err := env.View(context.Background(), func(txn *Txn) error {
		c, err := txn.Cursor(dbi)
		require.NoError(t, err)
		defer c.Close()
		require.ErrorIs(t, c.Put([]byte("k"), []byte("v"), 0), ErrTxnReadOnly)
		require.ErrorIs(t, c.Del(), ErrTxnReadOnly)
		return nil
	})
	require.NoError(t, err)
}
