package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "desk.log")

	err := Setup(LogConfig{Level: "debug", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	log := WithBatch("paylink", "batch-1")
	log.Info().Msg("links generated")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"component":"paylink"`, `"batch_id":"batch-1"`, `"links generated"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log output %q missing %s", data, want)
		}
	}

	// restore the default for other tests in this package
	if err := Setup(DefaultConfig()); err != nil {
		t.Fatal(err)
	}
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	if err := Setup(LogConfig{Level: "loud"}); err == nil {
		t.Fatal("Setup() with unknown level succeeded")
	}
}
