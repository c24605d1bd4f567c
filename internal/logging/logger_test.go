package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dispatch/internal/logging"
)

func TestConsoleHandlerWritesComponentPrefix(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "console.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	component := logging.NewComponentLogger(logger, "queue")
	component.Info("job enqueued", logging.String("job_id", "abc"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "queue: job enqueued") {
		t.Fatalf("expected component prefix in output, got %q", line)
	}
	if !strings.Contains(line, "job_id=abc") {
		t.Fatalf("expected attr in output, got %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller info at info level, got %q", line)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "level.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "warn",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("visible")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "hidden") {
		t.Fatalf("info record should be suppressed: %q", content)
	}
	if !strings.Contains(string(content), "visible") {
		t.Fatalf("warn record missing: %q", content)
	}
}

func TestJSONHandlerRenamesCoreKeys(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "json.log")

	logger, err := logging.New(logging.Options{
		Format:           "json",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("structured")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, key := range []string{`"ts":`, `"level":"info"`, `"msg":"structured"`} {
		if !strings.Contains(string(content), key) {
			t.Fatalf("expected %s in output, got %q", key, content)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
