package config

import (
	"bufio"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// envSearchDepth bounds how many parent directories are searched for .env.
const envSearchDepth = 6

// LoadEnvFile finds the nearest .env and exports its keys. Variables already
// set in the environment win.
func LoadEnvFile(logger *log.Logger) {
	path, err := findEnvFile()
	if err != nil {
		logger.Printf("WARN: failed to locate .env: %v", err)
		return
	}
	if path == "" {
		logger.Printf("WARN: .env not found in current or parent directories")
		return
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Printf("WARN: failed to open %s: %v", path, err)
		return
	}
	defer file.Close()

	if err := parseEnvFile(logger, file); err != nil {
		logger.Printf("WARN: failed to load %s: %v", path, err)
		return
	}
	logger.Printf("loaded env from %s", path)
}

func findEnvFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for i := 0; i < envSearchDepth; i++ {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}

func parseEnvFile(logger *log.Logger, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, trimQuotes(strings.TrimSpace(value))); err != nil {
			logger.Printf("WARN: failed to set %s from env file", key)
		}
	}
	return scanner.Err()
}

func trimQuotes(value string) string {
	if len(value) < 2 {
		return value
	}
	if (value[0] == '"' && value[len(value)-1] == '"') ||
		(value[0] == '\'' && value[len(value)-1] == '\'') {
		return value[1 : len(value)-1]
	}
	return value
}

// ParseCSV splits a comma separated list, dropping blanks.
func ParseCSV(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
