package mdbxkv

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/erigontech/mdbx-go/mdbx"
	"github.com/stretchr/testify/require"
)

func TestKindFromCode(t *testing.T) {
	require.Equal(t, KindNotFound, kindFromCode(codeNotFound))
	require.Equal(t, KindKeyExist, kindFromCode(codeKeyExist))
	require.Equal(t, KindMapFull, kindFromCode(codeMapFull))
	require.Equal(t, KindMapFull, kindFromCode(codeUnableExtendMap))
	require.Equal(t, KindCorrupt, kindFromCode(codeCorrupted))
	require.Equal(t, KindCorrupt, kindFromCode(codePageNotFound))
	require.Equal(t, KindPanic, kindFromCode(codePanic))
	require.Equal(t, KindIncompatible, kindFromCode(codeIncompatible))
	require.Equal(t, KindReaderLockMaxed, kindFromCode(codeReadersFull))
	require.Equal(t, KindBusy, kindFromCode(codeBusy))
	require.Equal(t, KindOther, kindFromCode(-12345))
}

func TestErrorFormatting(t *testing.T) {
	err := &Error{Kind: KindNotFound, Op: "txn_get", Code: codeNotFound}
	require.Contains(t, err.Error(), "txn_get")
	require.Contains(t, err.Error(), "not found")

	wrapped := fmt.Errorf("lookup: %w", err)
	require.True(t, IsNotFound(wrapped))
	require.Equal(t, KindNotFound, KindOf(wrapped))

	var typed *Error
	require.True(t, errors.As(wrapped, &typed))
	require.Equal(t, codeNotFound, typed.Code)
}

func TestSentinelsMatchByIs(t *testing.T) {
	err := opError("txn_put", ErrTxnDone)
	require.ErrorIs(t, err, ErrTxnDone)
	require.NotErrorIs(t, err, ErrTxnReadOnly)
}

func TestTranslateNil(t *testing.T) {
	require.NoError(t, translate("txn_put", nil))
}

func TestTranslateNotFoundSentinel(t *testing.T) {
	// The binding reports lookup misses as a bare sentinel rather than
	// an OpError-wrapped errno.
	err := translate("txn_get", mdbx.ErrNotFound)
	require.True(t, IsNotFound(err))
	require.Equal(t, KindNotFound, KindOf(err))

	var typed *Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, codeNotFound, typed.Code)

	wrapped := translate("cursor_next", fmt.Errorf("advance: %w", mdbx.ErrNotFound))
	require.True(t, IsNotFound(wrapped))
}

func TestPredicatesOnLiveErrors(t *testing.T) {
	env := testEnv(t)
	dbi := testDBI(t, env, "main", 0)

	err := env.View(context.Background(), func(txn *Txn) error {
		_, err := txn.Get(dbi, []byte("missing"))
		require.True(t, IsNotFound(err))
		require.False(t, IsKeyExist(err))
		require.Equal(t, KindNotFound, KindOf(err))

		var typed *Error
		require.True(t, errors.As(err, &typed))
		require.Equal(t, codeNotFound, typed.Code)
		require.Equal(t, "txn_get", typed.Op)
		return nil
	})
	require.NoError(t, err)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "not found", KindNotFound.String())
	require.Equal(t, "other", KindOther.String())
	require.NotEmpty(t, KindBusy.String())
}
