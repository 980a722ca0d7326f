package dotenv

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile_MissingFileIsNoop(t *testing.T) {
	t.Parallel()
	if err := LoadFile(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("LoadFile missing file error: %v", err)
	}
}

func TestLoadFile_LoadsValuesAndPreservesExisting(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	content := "" +
		"# comment\n" +
		"FLEETVOICE_FROM_FILE=loaded\n" +
		"FLEETVOICE_QUOTED='hello world'\n" +
		"export FLEETVOICE_EXPORTED=ok\n" +
		"FLEETVOICE_EXISTING=from_file\n" +
		"=no_key\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("FLEETVOICE_EXISTING", "already_set")

	if err := LoadFile(envPath); err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}

	if got := os.Getenv("FLEETVOICE_FROM_FILE"); got != "loaded" {
		t.Fatalf("FLEETVOICE_FROM_FILE=%q, want %q", got, "loaded")
	}
	if got := os.Getenv("FLEETVOICE_QUOTED"); got != "hello world" {
		t.Fatalf("FLEETVOICE_QUOTED=%q, want %q", got, "hello world")
	}
	if got := os.Getenv("FLEETVOICE_EXPORTED"); got != "ok" {
		t.Fatalf("FLEETVOICE_EXPORTED=%q, want %q", got, "ok")
	}
	if got := os.Getenv("FLEETVOICE_EXISTING"); got != "already_set" {
		t.Fatalf("FLEETVOICE_EXISTING=%q, want existing value preserved", got)
	}
}
