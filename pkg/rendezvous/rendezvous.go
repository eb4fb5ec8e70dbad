// Package rendezvous implements FileRendezvous: atomic read/write/delete of
// the small JSON blobs the master, workers, and Controller exchange under
// the working directory, plus the advisory file locks described in §5.
//
// All payloads are JSON (§6: "All file payloads are JSON"); writes go to a
// temp file in the same directory followed by os.Rename so a concurrent
// reader never observes a partial write.
package rendezvous

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"sockboss/pkg/codec"
)

const (
	PidFileName      = "process.pid"
	StatusFileName   = "status.workerman"
	ShutdownFileName = "shutdown.workerman"
	RestartFileName  = "restart.workerman"
)

// FileRendezvous is bound to one working directory and provides every
// rendezvous operation the master, a worker, and the Controller need.
type FileRendezvous struct {
	dir string
}

func New(workingDir string) *FileRendezvous {
	return &FileRendezvous{dir: workingDir}
}

func (r *FileRendezvous) Dir() string { return r.dir }

// Path resolves name to an absolute path under the working directory. Used
// both for the four well-known filenames and for per-process hash files.
func (r *FileRendezvous) Path(name string) string {
	return filepath.Join(r.dir, name)
}

// writeJSON atomically writes v as JSON to name.
func (r *FileRendezvous) writeJSON(name string, v any) error {
	path := r.Path(name)
	data, err := json.Marshal(v)
	if err != nil {
		return &codec.FileIOError{Op: "marshal", Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(r.dir, ".rendezvous-*")
	if err != nil {
		return &codec.FileIOError{Op: "create-temp", Path: path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &codec.FileIOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &codec.FileIOError{Op: "close", Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return &codec.FileIOError{Op: "chmod", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return &codec.FileIOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

func (r *FileRendezvous) readJSON(name string, v any) error {
	path := r.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return &codec.FileIOError{Op: "read", Path: path, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &codec.FileIOError{Op: "unmarshal", Path: path, Err: err}
	}
	return nil
}

func (r *FileRendezvous) remove(name string) error {
	path := r.Path(name)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &codec.FileIOError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// Exists reports whether the named rendezvous file is currently present.
func (r *FileRendezvous) Exists(name string) bool {
	_, err := os.Stat(r.Path(name))
	return err == nil
}

// --- process.pid ---

func (r *FileRendezvous) WritePid(pid int) error {
	return r.writeJSON(PidFileName, codec.PidFile(pid))
}

func (r *FileRendezvous) ReadPid() (int, error) {
	var pid codec.PidFile
	if err := r.readJSON(PidFileName, &pid); err != nil {
		return 0, err
	}
	return int(pid), nil
}

func (r *FileRendezvous) RemovePid() error { return r.remove(PidFileName) }

// --- status.workerman / shutdown.workerman (hash lists) ---

func (r *FileRendezvous) WriteHashList(name string, hashes codec.HashList) error {
	return r.writeJSON(name, hashes)
}

func (r *FileRendezvous) ReadHashList(name string) (codec.HashList, error) {
	var hashes codec.HashList
	if err := r.readJSON(name, &hashes); err != nil {
		return nil, err
	}
	return hashes, nil
}

func (r *FileRendezvous) RemoveHashList(name string) error { return r.remove(name) }

// --- restart.workerman ---

func (r *FileRendezvous) WriteRestartTimestamp(ts int64) error {
	return r.writeJSON(RestartFileName, codec.RestartTimestamp(ts))
}

func (r *FileRendezvous) ReadRestartTimestamp() (int64, error) {
	var ts codec.RestartTimestamp
	if err := r.readJSON(RestartFileName, &ts); err != nil {
		return 0, err
	}
	return int64(ts), nil
}

// --- per-process hash files ---

func (r *FileRendezvous) WriteStatusRow(hash string, row codec.StatusRow) error {
	return r.writeJSON(hash, row)
}

func (r *FileRendezvous) ReadStatusRow(hash string) (codec.StatusRow, error) {
	var row codec.StatusRow
	err := r.readJSON(hash, &row)
	return row, err
}

func (r *FileRendezvous) DeleteHash(hash string) error { return r.remove(hash) }

// CreateStub creates an empty file at hash if it does not already exist —
// used by the synchronous graceful-stop handshake (§4.3.3 as redesigned):
// the master writes the stub files itself before signaling, rather than
// relying on the Controller to race it after reading shutdown.workerman.
func (r *FileRendezvous) CreateStub(hash string) error {
	path := r.Path(hash)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return &codec.FileIOError{Op: "create-stub", Path: path, Err: err}
	}
	return f.Close()
}

// RemoveWellKnown best-effort removes all four well-known rendezvous files.
// Called on master startup (to guarantee the Controller never observes
// stale files from a prior run) and on clean master exit.
func (r *FileRendezvous) RemoveWellKnown() error {
	var firstErr error
	for _, name := range []string{PidFileName, StatusFileName, ShutdownFileName, RestartFileName} {
		if err := r.remove(name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Lock acquires an exclusive advisory lock on path (flock(2)), returning an
// Unlocker. Provided for extension per §5 ("Locks are used only where spec
// text requires mutual exclusion on a rendezvous file; currently none").
func (r *FileRendezvous) Lock(name string) (*Unlocker, error) {
	path := r.Path(name)
	fd, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, &codec.FileIOError{Op: "open-for-lock", Path: path, Err: err}
	}
	if err := unix.Flock(int(fd.Fd()), unix.LOCK_EX); err != nil {
		_ = fd.Close()
		return nil, &codec.FileIOError{Op: "flock", Path: path, Err: err}
	}
	return &Unlocker{path: path, file: fd, locked: true}, nil
}

// Unlocker releases a lock acquired by Lock. Unlock errors only when the
// Unlocker no longer holds its lock (the corrected form of the original's
// inverted check): Unlock on an already-unlocked Unlocker returns an error
// instead of silently succeeding.
type Unlocker struct {
	path   string
	file   *os.File
	locked bool
}

func (u *Unlocker) Unlock() error {
	if !u.locked {
		return &codec.FileIOError{Op: "unlock", Path: u.path, Err: fmt.Errorf("file is not locked")}
	}
	err := unix.Flock(int(u.file.Fd()), unix.LOCK_UN)
	_ = u.file.Close()
	u.locked = false
	if err != nil {
		return &codec.FileIOError{Op: "funlock", Path: u.path, Err: err}
	}
	return nil
}
