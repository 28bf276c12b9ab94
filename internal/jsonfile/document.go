// Package jsonfile keeps a single JSON document on disk and serializes every
// read-modify-write cycle on it, both inside the process and across processes.
package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// StorageError reports an I/O or decoding failure on the backing file.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorage reports whether err is (or wraps) a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// Document is a JSON file holding one value of type T.
type Document[T any] struct {
	path string

	mu   sync.Mutex
	lock *flock.Flock
}

func New[T any](path string) *Document[T] {
	return &Document[T]{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

func (d *Document[T]) Path() string {
	return d.path
}

// Load returns the current value. A missing or empty file yields the zero value.
func (d *Document[T]) Load() (T, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var value T
	if err := d.ensureDir(); err != nil {
		return value, err
	}

	if err := d.lock.RLock(); err != nil {
		return value, &StorageError{Op: "rlock", Path: d.path, Err: err}
	}
	defer d.lock.Unlock()

	return d.read()
}

// Update reads the document under an exclusive lock and passes it to fn.
// The document is written back only when fn returns nil; fn errors are
// returned as is.
func (d *Document[T]) Update(fn func(*T) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureDir(); err != nil {
		return err
	}

	if err := d.lock.Lock(); err != nil {
		return &StorageError{Op: "lock", Path: d.path, Err: err}
	}
	defer d.lock.Unlock()

	value, err := d.read()
	if err != nil {
		return err
	}

	if err := fn(&value); err != nil {
		return err
	}

	return d.write(value)
}

func (d *Document[T]) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return &StorageError{Op: "mkdir", Path: d.path, Err: err}
	}
	return nil
}

func (d *Document[T]) read() (T, error) {
	var value T

	data, err := os.ReadFile(d.path)
	if errors.Is(err, os.ErrNotExist) {
		return value, nil
	}
	if err != nil {
		return value, &StorageError{Op: "read", Path: d.path, Err: err}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return value, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&value); err != nil {
		return value, &StorageError{Op: "decode", Path: d.path, Err: err}
	}

	return value, nil
}

// write replaces the file atomically: temp file in the same directory, then rename.
func (d *Document[T]) write(value T) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return &StorageError{Op: "encode", Path: d.path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), filepath.Base(d.path)+".*.tmp")
	if err != nil {
		return &StorageError{Op: "write", Path: d.path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &StorageError{Op: "write", Path: d.path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &StorageError{Op: "sync", Path: d.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &StorageError{Op: "close", Path: d.path, Err: err}
	}

	if err := os.Rename(tmpName, d.path); err != nil {
		os.Remove(tmpName)
		return &StorageError{Op: "rename", Path: d.path, Err: err}
	}

	return nil
}
