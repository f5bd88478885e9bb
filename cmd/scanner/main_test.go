package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrmang/qr"
)

const testSecret = "test-secret-key-32bytes-long!!"

func runApp(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	require.NoError(t, app.Run(append([]string{"scanner"}, args...)))
	return out.String()
}

func TestEncode_printsContent(t *testing.T) {
	out := runApp(t, "encode", "--secret", testSecret, "--reference", "BR-AB12CD34")

	payload, err := qr.NewCodec(testSecret).Decode(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "verify:BR-AB12CD34", payload.String())
}

func TestEncode_writesPNGOnlyWithOut(t *testing.T) {
	dir := t.TempDir()

	runApp(t, "encode", "--secret", testSecret, "--reference", "BR-AB12CD34")
	_, err := os.Stat("ticket.png")
	assert.True(t, os.IsNotExist(err), "no PNG is written without --out")

	pngPath := filepath.Join(dir, "ticket.png")
	runApp(t, "encode", "--secret", testSecret, "--reference", "BR-AB12CD34", "--out", pngPath)
	content, err := os.ReadFile(pngPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("\x89PNG")))
}

func TestScan_dryRun(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "001.png")

	runApp(t, "encode", "--secret", testSecret, "--reference", "BR-DRYRUN", "--out", pngPath, "--size", "512")

	out := runApp(t, "scan",
		"--secret", testSecret,
		"--frames", dir,
		"--poll", "0",
		"--auto-resume",
		"--dry-run",
	)

	assert.Contains(t, out, "BR-DRYRUN")
	assert.Contains(t, out, "dry_run")
}
