package deps

import (
	"os"
	"path/filepath"
	"testing"

	"runqd/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Empty"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available requirement: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary with detail, got %#v", results[1])
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for empty command: %q", results[2].Detail)
	}
}

func TestForCommandTasksMarksInactiveOptional(t *testing.T) {
	tasks := []config.CommandTask{
		{Name: "Backup", Command: "backup"},
		{Name: "Prune", Command: "prune"},
	}
	reqs := ForCommandTasks(tasks, []string{"Ping", "Backup"})
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(reqs))
	}
	if reqs[0].Optional || !reqs[1].Optional {
		t.Fatalf("unexpected optional flags: %#v", reqs)
	}

	missing := Missing(CheckBinaries(reqs))
	if len(missing) != 1 || missing[0].Name != "Backup" {
		t.Fatalf("expected only the active task to be reported missing, got %#v", missing)
	}
}
