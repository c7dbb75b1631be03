package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ak/cafeinv/internal/infrastructure/config"
	"go.uber.org/zap"
)

func TestNewWritesJSONToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "cafeinv.log")
	log, err := New(config.LoggingConfig{Level: "info", Format: "json", Output: out})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.WithComponent("import").WithRun("run-1").WithPlatform("square").Info("run finished", zap.Int("rows", 3))
	_ = log.Sync()

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	for _, want := range []string{`"component":"import"`, `"run_id":"run-1"`, `"platform":"square"`, `"rows":3`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %s missing %s", line, want)
		}
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	log, err := New(config.LoggingConfig{Level: "chatty", Output: "stdout"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if log.Core().Enabled(zap.DebugLevel) {
		t.Fatal("debug should be disabled at fallback level")
	}
	if c := log.WithComponent("engine"); c.Component() != "engine" {
		t.Fatalf("component = %q", c.Component())
	}
}
