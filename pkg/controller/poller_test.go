package controller

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWaitForExistsReturnsImmediatelyIfAlreadyPresent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "process.pid")
	if err := os.WriteFile(path, []byte("1"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	p := NewPoller(dir)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.WaitForExists(ctx, path); err != nil {
		t.Fatalf("WaitForExists: %v", err)
	}
}

func TestWaitForExistsObservesLaterCreation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "status.workerman")

	p := NewPoller(dir)
	defer p.Close()

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(path, []byte("[]"), 0644)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := p.WaitForExists(ctx, path); err != nil {
		t.Fatalf("WaitForExists: %v", err)
	}
}

func TestWaitForAbsentObservesLaterDeletion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shutdown.workerman")
	if err := os.WriteFile(path, []byte("[]"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	p := NewPoller(dir)
	defer p.Close()

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.Remove(path)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := p.WaitForAbsent(ctx, path); err != nil {
		t.Fatalf("WaitForAbsent: %v", err)
	}
}

func TestWaitForExistsHonorsContextCancellation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "restart.workerman")

	p := NewPoller(dir)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := p.WaitForExists(ctx, path); err == nil {
		t.Error("WaitForExists should return an error once the context is done")
	}
}
