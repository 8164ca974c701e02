package config

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// envSearchDepth bounds how many parent directories are searched for .env.
const envSearchDepth = 6

// loadEnvFile merges ENV_FILE, or the nearest .env, into the process
// environment. Problems are logged and never fatal.
func loadEnvFile(logger *slog.Logger) {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = findEnvFile()
	}
	if path == "" {
		logger.Debug("no .env file found")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Warn("env file unreadable", "path", path, "error", err)
		return
	}
	defer f.Close()

	if err := parseEnv(f, logger); err != nil {
		logger.Warn("env file partially loaded", "path", path, "error", err)
		return
	}
	logger.Info("loaded env file", "path", path)
}

func findEnvFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for range envSearchDepth {
		candidate := filepath.Join(dir, ".env")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
	return ""
}

// parseEnv applies KEY=VALUE lines from r. Keys already set in the process
// environment win over the file.
func parseEnv(r io.Reader, logger *slog.Logger) error {
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		key, value, ok := envLine(sc.Text(), n == 1)
		if !ok {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			logger.Warn("env file variable rejected", "key", key, "line", n)
		}
	}
	return sc.Err()
}

// envLine parses one line. Blank lines, comments and lines without "=" are
// skipped. An optional "export " prefix and matching quotes are removed.
func envLine(raw string, first bool) (key, value string, ok bool) {
	line := strings.TrimSpace(raw)
	if first {
		line = strings.TrimPrefix(line, "\ufeff")
	}
	if line == "" || line[0] == '#' {
		return "", "", false
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

	key, value, ok = strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", false
	}
	return key, unquote(strings.TrimSpace(value)), true
}

func unquote(v string) string {
	if n := len(v); n >= 2 && (v[0] == '"' || v[0] == '\'') && v[n-1] == v[0] {
		return v[1 : n-1]
	}
	return v
}
