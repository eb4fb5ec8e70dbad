// Package controller implements the Controller component from §4.4: the
// short-lived CLI-side driver for start/stop/restart/status.
package controller

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// pollFallback is the interval used when no filesystem-event backend is
// available, per the design notes' "200ms polling fallback".
const pollFallback = 200 * time.Millisecond

// Poller replaces the original's ad-hoc usleep spin with a single typed
// watcher over the working directory, whose WaitForExists / WaitForAbsent
// block until a file appears or disappears — driven by fsnotify events, or,
// if fsnotify's backend can't be initialized, by fixed-interval polling of
// the same directory.
type Poller struct {
	dir     string
	watcher *fsnotify.Watcher
}

func NewPoller(dir string) *Poller {
	p := &Poller{dir: dir}
	if w, err := fsnotify.NewWatcher(); err == nil {
		if err := w.Add(dir); err == nil {
			p.watcher = w
		} else {
			_ = w.Close()
		}
	}
	return p
}

func (p *Poller) Close() {
	if p.watcher != nil {
		_ = p.watcher.Close()
	}
}

// WaitForExists blocks until path exists or ctx is done.
func (p *Poller) WaitForExists(ctx context.Context, path string) error {
	if exists(path) {
		return nil
	}
	if p.watcher != nil {
		return p.waitEvent(ctx, path, true)
	}
	return p.pollUntil(ctx, path, true)
}

// WaitForAbsent blocks until path no longer exists or ctx is done.
func (p *Poller) WaitForAbsent(ctx context.Context, path string) error {
	if !exists(path) {
		return nil
	}
	if p.watcher != nil {
		return p.waitEvent(ctx, path, false)
	}
	return p.pollUntil(ctx, path, false)
}

func (p *Poller) waitEvent(ctx context.Context, path string, wantExists bool) error {
	target := filepath.Clean(path)
	for {
		if exists(path) == wantExists {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-p.watcher.Events:
			if !ok {
				return p.pollUntil(ctx, path, wantExists)
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
		case err, ok := <-p.watcher.Errors:
			if !ok || err != nil {
				return p.pollUntil(ctx, path, wantExists)
			}
		case <-time.After(pollFallback):
			// belt-and-suspenders: some editors/containers deliver
			// events unreliably across bind mounts, so still re-check.
		}
	}
}

func (p *Poller) pollUntil(ctx context.Context, path string, wantExists bool) error {
	ticker := time.NewTicker(pollFallback)
	defer ticker.Stop()
	for {
		if exists(path) == wantExists {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
