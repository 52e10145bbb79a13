package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInputs(t *testing.T) (bars, events string) {
	t.Helper()
	dir := t.TempDir()

	var b strings.Builder
	b.WriteString("timestamp,open,high,low,close,volume\n")
	for day := 11; day <= 12; day++ {
		for h := 0; h < 6; h++ {
			p := 5000 + float64(h)*0.25
			fmt.Fprintf(&b, "2024-03-%02d %02d:00:00,%.2f,%.2f,%.2f,%.2f,100\n", day, 8+h, p, p+0.5, p-0.5, p+0.25)
		}
	}
	bars = filepath.Join(dir, "bars.csv")
	require.NoError(t, os.WriteFile(bars, []byte(b.String()), 0o644))

	events = filepath.Join(dir, "events.csv")
	require.NoError(t, os.WriteFile(events, []byte(
		"datetime,events\n"+
			"2024-03-12 08:30:00,Consumer Price Index\n"+
			"2024-03-13 14:00:00,10-Year Note Auction\n",
	), 0o644))
	return bars, events
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClassifyCommand(t *testing.T) {
	_, events := writeInputs(t)
	out, err := run(t, "classify", "--events", events)
	require.NoError(t, err)
	assert.Contains(t, out, "Consumer Price Index")
	assert.Contains(t, out, "10-Year Note Auction")
}

func TestReturnsCommandExportsCSV(t *testing.T) {
	bars, events := writeInputs(t)
	dir := t.TempDir()
	dst := filepath.Join(dir, "returns.csv")
	latest := filepath.Join(dir, "latest.csv")
	out, err := run(t, "returns", "--bars", bars, "--events", events, "--interval", "1h", "--out", dst, "--latest", "1", "--latest-out", latest)
	require.NoError(t, err)
	assert.Contains(t, out, "All day")

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "date,session,value,high,low"))

	data, err = os.ReadFile(latest)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, "date,value,z_all,z_latest_n", lines[0])
	assert.Len(t, lines, 2)
}

func TestMatrixCommand(t *testing.T) {
	bars, events := writeInputs(t)
	out, err := run(t, "matrix", "--bars", bars, "--events", events, "--hours", "2", "--version", "Up")
	require.NoError(t, err)
	assert.Contains(t, out, "Up")
}

func TestCommandErrors(t *testing.T) {
	bars, events := writeInputs(t)

	_, err := run(t, "returns", "--events", events)
	assert.Error(t, err)

	_, err = run(t, "matrix", "--bars", bars, "--events", events, "--version", "Sideways")
	assert.Error(t, err)

	_, err = run(t, "volatility", "--bars", bars, "--events", events, "--month", "13")
	assert.Error(t, err)
}
