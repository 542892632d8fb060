package deps

import (
	"os"
	"path/filepath"
	"testing"

	"albumsync/internal/config"
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
		{Name: "Empty", Command: "  ", Optional: true},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available || results[0].Path != present {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available || !results[1].Blocking() {
		t.Fatalf("expected missing binary to block, got %#v", results[1])
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[2].Available || results[2].Blocking() {
		t.Fatalf("expected optional unconfigured command to be non-blocking, got %#v", results[2])
	}
}

func TestRequirementsForPhotosLibrary(t *testing.T) {
	cfg := config.Default()
	reqs := Requirements(&cfg)
	if len(reqs) != 1 || reqs[0].Command != "osxphotos" || reqs[0].Optional {
		t.Fatalf("expected a single required osxphotos, got %+v", reqs)
	}

	cfg.Recovery.Binary = "/opt/osxphotos/bin/osxphotos"
	reqs = Requirements(&cfg)
	if len(reqs) != 2 || reqs[1].Optional {
		t.Fatalf("expected distinct required recovery binary, got %+v", reqs)
	}
}

func TestRequirementsForDirectoryLibrary(t *testing.T) {
	cfg := config.Default()
	cfg.Library.Kind = config.LibraryKindDirectory
	reqs := Requirements(&cfg)
	if len(reqs) != 1 || !reqs[0].Optional {
		t.Fatalf("expected optional recovery binary only, got %+v", reqs)
	}
}

func TestCheckConfiguredWithStub(t *testing.T) {
	binDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(binDir, "osxphotos"), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", binDir)

	cfg := config.Default()
	results := CheckConfigured(&cfg)
	if len(results) != 1 || !results[0].Available {
		t.Fatalf("expected stubbed osxphotos to be found, got %+v", results)
	}
}
