// Package mdbxkv is a safety layer over the MDBX embedded transactional
// key-value engine.
//
// The engine exposes a C-style handle API: environments, transactions,
// database handles and cursors, all with strict lifetime and threading
// rules and integer error codes. mdbxkv keeps the full capability
// surface while making misuse fail loudly: raw codes become typed
// errors, handle lifetimes are tracked so stale use returns an error
// instead of corrupting memory, and the engine's single-writer rule is
// enforced with a context-aware gate rather than a blocked OS thread.
//
// Key features:
//   - MVCC snapshots: any number of readers alongside one writer
//   - Named databases with DupSort duplicate-value support
//   - Nested write transactions with parent blocking
//   - Typed error kinds checkable with errors.Is style predicates
//   - Cursor navigation plus range, prefix and reverse iterators
//
// Basic usage:
//
//	env, err := mdbxkv.New().Path("/path/to/db").Open()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer env.Close()
//
//	err = env.Update(ctx, func(txn *mdbxkv.Txn) error {
//	    dbi, err := txn.OpenDBI("main", mdbxkv.Create)
//	    if err != nil {
//	        return err
//	    }
//	    return txn.Put(dbi, []byte("key"), []byte("value"), 0)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Returned key and value slices point into the memory map and are only
// valid within the transaction that produced them; copy what outlives
// it.
package mdbxkv
