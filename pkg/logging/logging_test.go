package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/David-Botos/warehouse-ingress/pkg/config"
)

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	logger, closeFn, err := New(config.LogConfig{Level: "info", Format: "console", File: path})
	if err != nil {
		t.Fatal(err)
	}

	logger.Debug("hidden")
	logger.Info("Run completed")
	logger.Sync()
	if err := closeFn(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"Run completed"`) {
		t.Errorf("log file = %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug entry written at info level")
	}
}

func TestRejectsBadSettings(t *testing.T) {
	tests := []config.LogConfig{
		{Level: "loud", Format: "json"},
		{Level: "info", Format: "xml"},
	}
	for _, cfg := range tests {
		if _, _, err := New(cfg); err == nil {
			t.Errorf("expected error for %+v", cfg)
		}
	}
}
