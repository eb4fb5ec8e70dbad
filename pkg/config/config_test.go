package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaultsWithNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load("", dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WorkingDir != dir {
		t.Errorf("WorkingDir = %q, want %q", cfg.WorkingDir, dir)
	}
	if cfg.Log.Level != defaultLogLevel {
		t.Errorf("Log.Level = %q, want default %q", cfg.Log.Level, defaultLogLevel)
	}
	if cfg.Daemonize {
		t.Error("Daemonize should default to false")
	}
}

func TestLoadReadsExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yml")
	contents := []byte("name: echo\nlisteners:\n  - name: echo\n    transport: tcp\n    address: 127.0.0.1:9000\n    worker_count: 4\n")
	if err := os.WriteFile(path, contents, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "echo" {
		t.Errorf("Name = %q, want \"echo\"", cfg.Name)
	}
	if len(cfg.Listeners) != 1 || cfg.Listeners[0].WorkerCount != 4 {
		t.Fatalf("Listeners = %+v, want one entry with worker_count 4", cfg.Listeners)
	}
}

func TestLoadMissingExplicitConfigFileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.yml"), dir); err == nil {
		t.Error("Load with a nonexistent explicit config file should error")
	}
}

func TestMasterTitleDefaultsToWorkerman(t *testing.T) {
	if got := MasterTitle(""); got != "Workerman master" {
		t.Errorf("MasterTitle(\"\") = %q, want \"Workerman master\"", got)
	}
	if got := MasterTitle("echo"); got != "echo master" {
		t.Errorf("MasterTitle(\"echo\") = %q, want \"echo master\"", got)
	}
}

func TestWorkerTitle(t *testing.T) {
	if got := WorkerTitle("echo", 3); got != "echo worker (3)" {
		t.Errorf("WorkerTitle(\"echo\", 3) = %q, want \"echo worker (3)\"", got)
	}
}

func TestGetRuntimeDirCreatesTmpDir(t *testing.T) {
	dir := t.TempDir()
	tmp := GetRuntimeDir(dir)
	info, err := os.Stat(tmp)
	if err != nil {
		t.Fatalf("Stat(%s): %v", tmp, err)
	}
	if !info.IsDir() {
		t.Errorf("%s should be a directory", tmp)
	}
}
