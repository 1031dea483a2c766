package mdbxkv

import (
	"errors"
	"fmt"

	"github.com/erigontech/mdbx-go/mdbx"
)

// Kind classifies every error the wrapper can return into a closed set.
// Engine codes outside this set surface as KindOther with the raw code
// preserved in Error.Code.
type Kind uint8

const (
	// KindOther is any error without a more specific classification.
	KindOther Kind = iota

	// KindNotFound indicates a lookup miss or cursor EOF. Expected,
	// not exceptional.
	KindNotFound

	// KindKeyExist indicates a NoOverwrite/NoDupData put hit an
	// existing key.
	KindKeyExist

	// KindTxnFull indicates the transaction accumulated too many
	// dirty pages.
	KindTxnFull

	// KindReaderLockMaxed indicates the reader slot table is exhausted.
	KindReaderLockMaxed

	// KindMapFull indicates the environment map size limit was reached.
	KindMapFull

	// KindCorrupt indicates unrecoverable database corruption.
	KindCorrupt

	// KindPanic indicates a fatal engine error; the environment should
	// be closed.
	KindPanic

	// KindIncompatible indicates a version or format mismatch, or
	// incompatible open/database flags.
	KindIncompatible

	// KindBadValSize indicates an invalid key or value size.
	KindBadValSize

	// KindBusy indicates writer-gate contention or an engine lock
	// conflict. Retryable by the caller.
	KindBusy
)

var kindNames = map[Kind]string{
	KindOther:           "other",
	KindNotFound:        "not found",
	KindKeyExist:        "key exists",
	KindTxnFull:         "transaction full",
	KindReaderLockMaxed: "reader slots exhausted",
	KindMapFull:         "map full",
	KindCorrupt:         "corrupted",
	KindPanic:           "engine panic",
	KindIncompatible:    "incompatible",
	KindBadValSize:      "bad key/value size",
	KindBusy:            "busy",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", k)
}

// MDBX error codes, kept numerically for translation. The engine owns
// these values; the binding reports them through mdbx.Errno.
const (
	codeKeyExist        = -30799
	codeNotFound        = -30798
	codePageNotFound    = -30797
	codeCorrupted       = -30796
	codePanic           = -30795
	codeVersionMismatch = -30794
	codeInvalid         = -30793
	codeMapFull         = -30792
	codeDBsFull         = -30791
	codeReadersFull     = -30790
	codeTxnFull         = -30788
	codeCursorFull      = -30787
	codeUnableExtendMap = -30785
	codeIncompatible    = -30784
	codeBadTxn          = -30782
	codeBadValSize      = -30781
	codeBusy            = -30778
)

// Error is the error type returned by all wrapper operations.
type Error struct {
	Kind Kind
	Op   string // the wrapper operation that failed, e.g. "txn_put"
	Code int    // raw engine code, 0 if the error did not come from the engine
	Err  error  // wrapped cause
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("mdbxkv: %s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("mdbxkv: %s: %s", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("mdbxkv: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("mdbxkv: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errors raised by the wrapper itself, before any engine call. Lifecycle
// violations fail fast with these instead of reaching a stale handle.
var (
	// ErrEnvClosed is returned for operations on a closed Environment.
	ErrEnvClosed = &Error{Kind: KindOther, Err: errors.New("environment is closed")}

	// ErrTxnDone is returned for operations on a committed or aborted
	// transaction.
	ErrTxnDone = &Error{Kind: KindOther, Code: codeBadTxn, Err: errors.New("transaction already resolved")}

	// ErrTxnBlocked is returned for operations on a transaction with an
	// unresolved child.
	ErrTxnBlocked = &Error{Kind: KindOther, Code: codeBadTxn, Err: errors.New("transaction has an active child")}

	// ErrTxnReadOnly is returned for write operations on a read-only
	// transaction.
	ErrTxnReadOnly = &Error{Kind: KindOther, Err: errors.New("write operation on read-only transaction")}

	// ErrCursorClosed is returned for operations on a cursor whose owning
	// transaction has ended or which was closed explicitly.
	ErrCursorClosed = &Error{Kind: KindOther, Err: errors.New("cursor is closed")}

	// ErrReadOnlyEnv is returned when a write transaction is requested
	// against an environment opened read-only.
	ErrReadOnlyEnv = &Error{Kind: KindOther, Err: errors.New("environment is read-only")}
)

// kindFromCode maps an engine code onto the closed Kind set. Total:
// unknown codes classify as KindOther.
func kindFromCode(code int) Kind {
	switch code {
	case codeNotFound:
		return KindNotFound
	case codeKeyExist:
		return KindKeyExist
	case codeTxnFull:
		return KindTxnFull
	case codeReadersFull:
		return KindReaderLockMaxed
	case codeMapFull, codeUnableExtendMap:
		return KindMapFull
	case codeCorrupted, codePageNotFound, codeCursorFull:
		return KindCorrupt
	case codePanic:
		return KindPanic
	case codeVersionMismatch, codeIncompatible, codeInvalid:
		return KindIncompatible
	case codeBadValSize:
		return KindBadValSize
	case codeBusy:
		return KindBusy
	}
	return KindOther
}

// engineErrno digs the mdbx.Errno out of an engine error. The binding
// wraps most errnos in *mdbx.OpError.
func engineErrno(err error) (mdbx.Errno, bool) {
	var op *mdbx.OpError
	if errors.As(err, &op) {
		err = op.Errno
	}
	var errno mdbx.Errno
	if errors.As(err, &errno) {
		return errno, true
	}
	return 0, false
}

// translate converts an engine error into an *Error. Every wrapper call
// into the binding routes its non-nil error through here.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	// The binding reports MDBX_NOTFOUND as a bare sentinel, not an
	// OpError-wrapped errno.
	if errors.Is(err, mdbx.ErrNotFound) {
		return &Error{Kind: KindNotFound, Op: op, Code: codeNotFound, Err: err}
	}
	if errno, ok := engineErrno(err); ok {
		code := int(errno)
		return &Error{Kind: kindFromCode(code), Op: op, Code: code, Err: err}
	}
	return &Error{Kind: KindOther, Op: op, Err: err}
}

// opError attaches an operation name to one of the wrapper sentinels.
func opError(op string, sentinel *Error) error {
	return &Error{Kind: sentinel.Kind, Op: op, Code: sentinel.Code, Err: sentinel}
}

func busyError(op string, cause error) error {
	return &Error{Kind: KindBusy, Op: op, Err: cause}
}

// KindOf returns the Kind of err, or KindOther for nil and foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

func isKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// IsNotFound reports whether err is a lookup miss or cursor EOF.
func IsNotFound(err error) bool { return isKind(err, KindNotFound) }

// IsKeyExist reports whether err is a NoOverwrite/NoDupData conflict.
func IsKeyExist(err error) bool { return isKind(err, KindKeyExist) }

// IsBusy reports whether err is retryable writer/lock contention.
func IsBusy(err error) bool { return isKind(err, KindBusy) }

// IsMapFull reports whether err means the map size limit was reached.
func IsMapFull(err error) bool { return isKind(err, KindMapFull) }

// IsCorrupt reports whether err indicates database corruption.
func IsCorrupt(err error) bool { return isKind(err, KindCorrupt) }

// IsBadValSize reports whether err is an invalid key or value size.
func IsBadValSize(err error) bool { return isKind(err, KindBadValSize) }
