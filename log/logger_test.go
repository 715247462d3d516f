package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLoggerWritesToFile(t *testing.T) {
	dir := t.TempDir()
	outputFile := filepath.Join(dir, "api.log")

	logger := Logger(logrus.New(), outputFile, "api", "test")
	logger.Info("hello")

	b, err := os.ReadFile(outputFile)
	assert.NoError(t, err)
	assert.Contains(t, string(b), "hello")
	assert.Contains(t, string(b), "application=api")
}

func TestLoggerBadPathFallsBackToStderr(t *testing.T) {
	logger := Logger(logrus.New(), "/this/path/does/not/exist/api.log", "api", "test")
	assert.NotNil(t, logger)
}
