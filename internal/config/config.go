// Package config loads command line defaults from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/joho/godotenv"
)

// Config holds the tool's settings. Flags override every field.
type Config struct {
	TempDir   string
	LogLevel  string
	LogFormat string
	Delimiter rune
	Encoding  string
	SkipEmpty bool
}

// Load reads LAZYSHEET_* variables, after loading envFiles (or ./.env when
// none are given) if they exist.
func Load(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	delim, err := ParseDelimiter(getEnvOrDefault("LAZYSHEET_CSV_DELIMITER", ","))
	if err != nil {
		return nil, err
	}
	skip, err := getEnvBoolOrDefault("LAZYSHEET_SKIP_EMPTY", false)
	if err != nil {
		return nil, err
	}

	return &Config{
		TempDir:   getEnvOrDefault("LAZYSHEET_TEMP_DIR", os.TempDir()),
		LogLevel:  getEnvOrDefault("LAZYSHEET_LOG_LEVEL", "warn"),
		LogFormat: getEnvOrDefault("LAZYSHEET_LOG_FORMAT", "text"),
		Delimiter: delim,
		Encoding:  getEnvOrDefault("LAZYSHEET_CSV_ENCODING", "utf-8"),
		SkipEmpty: skip,
	}, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	return nil
}

// ParseDelimiter accepts a single character or the names "tab", "comma",
// "semicolon" and "pipe".
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "tab", `\t`:
		return '\t', nil
	case "comma":
		return ',', nil
	case "semicolon":
		return ';', nil
	case "pipe":
		return '|', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("config: delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBoolOrDefault(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}
