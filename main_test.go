package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("BASE_URL", "")
	t.Setenv("SHIP_COUNT", "")
	t.Setenv("MISSES_ALLOWED", "")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestEncodeCommand(t *testing.T) {
	out, err := runCLI(t, "encode", "--ship", "2", "--ship", "5", "--complete")
	require.NoError(t, err)
	assert.Equal(t, "www.shinobicontrols.com/battleship?Ship_Location=2&Ship_Location=5&Is_Complete=1\n", out)
}

func TestDecodeCommand(t *testing.T) {
	out, err := runCLI(t, "decode", "www.shinobicontrols.com/battleship?Ship_Location=7&Ship_Location=1&Is_Complete=0")
	require.NoError(t, err)
	assert.Equal(t, "ships: [7 1]\ncomplete: false\n", out)

	_, err = runCLI(t, "decode", "?Ship_Location=7")
	assert.Error(t, err)
}
