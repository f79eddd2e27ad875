package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every LAZYSHEET_* variable for the test; godotenv never
// overrides a variable that is set, even to "".
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LAZYSHEET_TEMP_DIR", "LAZYSHEET_LOG_LEVEL", "LAZYSHEET_LOG_FORMAT",
		"LAZYSHEET_CSV_DELIMITER", "LAZYSHEET_CSV_ENCODING", "LAZYSHEET_SKIP_EMPTY",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, os.TempDir(), cfg.TempDir)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, ',', cfg.Delimiter)
	assert.Equal(t, "utf-8", cfg.Encoding)
	assert.False(t, cfg.SkipEmpty)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("LAZYSHEET_TEMP_DIR", "/var/tmp/imports")
	t.Setenv("LAZYSHEET_LOG_LEVEL", "debug")
	t.Setenv("LAZYSHEET_CSV_DELIMITER", "semicolon")
	t.Setenv("LAZYSHEET_SKIP_EMPTY", "true")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/var/tmp/imports", cfg.TempDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ';', cfg.Delimiter)
	assert.True(t, cfg.SkipEmpty)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "import.env")
	require.NoError(t, os.WriteFile(path, []byte("LAZYSHEET_LOG_FORMAT=json\nLAZYSHEET_CSV_ENCODING=latin1\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "latin1", cfg.Encoding)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing env file", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
		assert.Error(t, err)
	})

	t.Run("bad bool", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LAZYSHEET_SKIP_EMPTY", "sometimes")
		t.Chdir(t.TempDir())
		_, err := Load()
		assert.ErrorContains(t, err, "LAZYSHEET_SKIP_EMPTY")
	})

	t.Run("bad delimiter", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LAZYSHEET_CSV_DELIMITER", "::")
		t.Chdir(t.TempDir())
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		input string
		want  rune
	}{
		{"tab", '\t'},
		{`\t`, '\t'},
		{"TAB", '\t'},
		{"comma", ','},
		{"semicolon", ';'},
		{"pipe", '|'},
		{"|", '|'},
		{"§", '§'},
	}

	for _, tt := range tests {
		got, err := ParseDelimiter(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	_, err := ParseDelimiter("")
	assert.Error(t, err)
}
