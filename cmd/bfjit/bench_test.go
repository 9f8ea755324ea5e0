//go:build unix

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBenchCommand(t *testing.T) {
	dir := t.TempDir()
	prog := filepath.Join(dir, "clear.bf")
	require.NoError(t, os.WriteFile(prog, []byte("+[-]\n"), 0644))
	chart := filepath.Join(dir, "chart.html")
	report := filepath.Join(dir, "report.json")

	out, err := execute(t, "", "bench", "--runs", "2", "--chart", chart, "--json", report, prog)
	require.NoError(t, err)
	assert.Contains(t, out, "clear.bf")
	assert.Contains(t, out, "program")
	assert.Contains(t, out, "+--")
	assert.Contains(t, out, "total")
	assert.Contains(t, out, "Saved chart: "+chart)

	html, err := os.ReadFile(chart)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Generated Code Size")

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name": "clear.bf"`)
}
