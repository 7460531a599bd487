package facts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"tacflow/internal/diag"
)

// SnapshotSchema is bumped whenever the Store layout changes.
const SnapshotSchema uint16 = 1

// SnapshotExt is the file extension of msgpack snapshots.
const SnapshotExt = ".mp"

type snapshot struct {
	Schema uint16 `msgpack:"schema"`
	Store  *Store `msgpack:"store"`
}

// EncodeSnapshot writes s to w as msgpack.
func EncodeSnapshot(w io.Writer, s *Store) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(&snapshot{Schema: SnapshotSchema, Store: s}); err != nil {
		return fmt.Errorf("facts: encode snapshot: %w", err)
	}
	return nil
}

// DecodeSnapshot reads a Store written by EncodeSnapshot.
func DecodeSnapshot(r io.Reader) (*Store, error) {
	var snap snapshot
	if err := msgpack.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("facts: decode snapshot: %w", err)
	}
	if snap.Schema != SnapshotSchema {
		return nil, fmt.Errorf("facts: snapshot schema %d, want %d", snap.Schema, SnapshotSchema)
	}
	if snap.Store == nil {
		return nil, fmt.Errorf("facts: snapshot has no store")
	}
	snap.Store.Canonicalize()
	return snap.Store, nil
}

// WriteSnapshot writes s to path atomically through a temp file.
func WriteSnapshot(path string, s *Store) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("facts: mkdir: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return fmt.Errorf("facts: create temp: %w", err)
	}
	defer os.Remove(f.Name())

	if err := EncodeSnapshot(f, s); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("facts: close temp: %w", err)
	}
	return os.Rename(f.Name(), path)
}

// ReadSnapshot reads a snapshot file.
func ReadSnapshot(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("facts: open snapshot: %w", err)
	}
	defer f.Close()
	return DecodeSnapshot(f)
}

// Open loads a fact directory or a snapshot file, depending on what path is.
// Snapshots carry no load diagnostics; the returned Diags is then empty.
func Open(path string) (*Store, *diag.Diags, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("facts: %w", err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	s, err := ReadSnapshot(path)
	if err != nil {
		return nil, nil, err
	}
	return s, &diag.Diags{}, nil
}
