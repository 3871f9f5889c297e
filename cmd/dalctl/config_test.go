package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, &Config{
		LogLevel:    "warn",
		LogFormat:   "text",
		Color:       "auto",
		ChunkLength: 1024,
		Deflate:     0,
		JSONIndent:  "  ",
	}, cfg)
}

func TestLoadConfigFile(t *testing.T) {
	p := writeFile(t, "dalctl.toml", `
log_level = "debug"
log_format = "json"
chunk_length = 4096
`)
	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, uint64(4096), cfg.ChunkLength)
	assert.Equal(t, "auto", cfg.Color)

	l, err := newLogger(cfg, os.Stderr)
	require.NoError(t, err)
	assert.Equal(t, "debug", l.GetLevel().String())
}

func TestLoadConfigErrors(t *testing.T) {
	tests := map[string]string{
		"unknown key":  `verbose = true`,
		"bad level":    `log_level = "loud"`,
		"bad format":   `log_format = "xml"`,
		"bad color":    `color = "sometimes"`,
		"zero chunk":   `chunk_length = 0`,
		"deflate":      `deflate = 11`,
		"invalid toml": `log_level = `,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, "dalctl.toml", content))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
