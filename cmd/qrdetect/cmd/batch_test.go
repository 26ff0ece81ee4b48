package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/factura-tools/qrdetect/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchCommandNoArgs(t *testing.T) {
	_, err := executeCommandAndCaptureOutput(t, rootCmd, []string{"batch"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input files")
}

func TestBatchCommandTextOutput(t *testing.T) {
	first := writeQRFixture(t, "batch-first")
	second := writeQRFixture(t, "batch-second")

	output, err := executeCommandAndCaptureOutput(t, rootCmd,
		[]string{"batch", first, second, "--format", "text", "--concurrency", "2"})
	require.NoError(t, err)

	assert.Contains(t, output, "batch-first")
	assert.Contains(t, output, "batch-second")
	assert.Contains(t, output, "2/2 detected")
}

func TestBatchCommandDirectoryInput(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scan.png"),
		testutil.QRImageBytes(t, "batch-dir", 256), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"),
		[]byte("not an image"), 0o600))

	output, err := executeCommandAndCaptureOutput(t, rootCmd,
		[]string{"batch", dir, "--format", "text"})
	require.NoError(t, err)

	assert.Contains(t, output, "batch-dir")
	assert.Contains(t, output, "1/1 detected")
}

func TestBatchCommandJSONOutput(t *testing.T) {
	path := writeQRFixture(t, "batch-json")

	output, err := executeCommandAndCaptureOutput(t, rootCmd,
		[]string{"batch", path, "--format", "json"})
	require.NoError(t, err)

	assert.Contains(t, output, `"successes": 1`)
	assert.Contains(t, output, `"batch-json"`)
}
