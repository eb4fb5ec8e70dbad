package rendezvous

import (
	"os"
	"testing"

	"sockboss/pkg/codec"
)

func newTestRendezvous(t *testing.T) *FileRendezvous {
	t.Helper()
	dir := t.TempDir()
	return New(dir)
}

func TestWritePidRoundTrip(t *testing.T) {
	r := newTestRendezvous(t)

	if r.Exists(PidFileName) {
		t.Fatal("pid file should not exist before WritePid")
	}
	if err := r.WritePid(4242); err != nil {
		t.Fatalf("WritePid: %v", err)
	}
	if !r.Exists(PidFileName) {
		t.Fatal("pid file should exist after WritePid")
	}

	pid, err := r.ReadPid()
	if err != nil {
		t.Fatalf("ReadPid: %v", err)
	}
	if pid != 4242 {
		t.Errorf("ReadPid() = %d, want 4242", pid)
	}

	if err := r.RemovePid(); err != nil {
		t.Fatalf("RemovePid: %v", err)
	}
	if r.Exists(PidFileName) {
		t.Fatal("pid file should not exist after RemovePid")
	}
	// Removing a file that's already gone must not error.
	if err := r.RemovePid(); err != nil {
		t.Errorf("RemovePid on absent file returned error: %v", err)
	}
}

func TestHashListRoundTrip(t *testing.T) {
	r := newTestRendezvous(t)
	hashes := codec.HashList{"aaa111", "bbb222", "ccc333"}

	if err := r.WriteHashList(ShutdownFileName, hashes); err != nil {
		t.Fatalf("WriteHashList: %v", err)
	}
	got, err := r.ReadHashList(ShutdownFileName)
	if err != nil {
		t.Fatalf("ReadHashList: %v", err)
	}
	if len(got) != len(hashes) {
		t.Fatalf("ReadHashList() = %v, want %v", got, hashes)
	}
	for i := range hashes {
		if got[i] != hashes[i] {
			t.Errorf("ReadHashList()[%d] = %q, want %q", i, got[i], hashes[i])
		}
	}
}

func TestWriteJSONIsAtomicNoLeftoverTempFile(t *testing.T) {
	r := newTestRendezvous(t)
	if err := r.WritePid(1); err != nil {
		t.Fatalf("WritePid: %v", err)
	}
	entries, err := os.ReadDir(r.Dir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != PidFileName {
			t.Errorf("unexpected leftover file in working dir: %s", e.Name())
		}
	}
}

func TestCreateStubIsIdempotent(t *testing.T) {
	r := newTestRendezvous(t)
	if err := r.CreateStub("deadbeef"); err != nil {
		t.Fatalf("first CreateStub: %v", err)
	}
	if err := r.CreateStub("deadbeef"); err != nil {
		t.Fatalf("second CreateStub on existing stub should be a no-op, got: %v", err)
	}
}

func TestUnlockerErrorsOnDoubleUnlock(t *testing.T) {
	r := newTestRendezvous(t)
	u, err := r.Lock("lockfile")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := u.Unlock(); err != nil {
		t.Fatalf("first Unlock: %v", err)
	}
	// The corrected predicate (Open Question #2): Unlock on an
	// already-unlocked Unlocker must error, not silently succeed.
	if err := u.Unlock(); err == nil {
		t.Fatal("second Unlock on an already-unlocked Unlocker should error")
	}
}

func TestRemoveWellKnownIsBestEffortWhenAbsent(t *testing.T) {
	r := newTestRendezvous(t)
	if err := r.RemoveWellKnown(); err != nil {
		t.Errorf("RemoveWellKnown with nothing present should not error, got: %v", err)
	}
}
