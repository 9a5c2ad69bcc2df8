package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelsAndPrefixes(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(INFO)
	t.Cleanup(func() { _ = InitLogger("", INFO) })

	Infof("copied %d documents", 3)
	Warnf("collection %s is empty", "orders")
	Errorf("boom")
	Debugf("hidden")

	out := buf.String()
	assert.Contains(t, out, "INFO: ")
	assert.Contains(t, out, "copied 3 documents")
	assert.Contains(t, out, "WARN: ")
	assert.Contains(t, out, "ERROR: ")
	assert.NotContains(t, out, "hidden")

	SetLevel(DEBUG)
	Debugf("visible")
	assert.Contains(t, buf.String(), "DEBUG: ")
	assert.Contains(t, buf.String(), "visible")
}

func TestInitLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.log")
	require.NoError(t, InitLogger(path, INFO))
	Infof("to file")
	Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")

	require.NoError(t, InitLogger("", INFO))
}

func TestInitLoggerBadPath(t *testing.T) {
	err := InitLogger(filepath.Join(t.TempDir(), "missing", "dir", "x.log"), INFO)
	assert.Error(t, err)
	// still usable on the console
	Infof("fallback")
}
