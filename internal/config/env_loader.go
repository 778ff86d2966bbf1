package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvLoader handles loading environment variables from .env files.
type EnvLoader struct {
	loaded  map[string]string
	baseDir string
}

// NewEnvLoader creates a new environment loader.
func NewEnvLoader(baseDir string) *EnvLoader {
	return &EnvLoader{
		baseDir: baseDir,
		loaded:  make(map[string]string),
	}
}

// LoadEnvFiles loads environment variables from .env files in priority
// order. Later files override earlier ones; real environment variables
// always win over file values.
func (l *EnvLoader) LoadEnvFiles(environment string) error {
	envFiles := []string{
		".env.defaults",
		fmt.Sprintf(".env.%s", environment),
		".env.local",
		".env",
	}

	for _, filename := range envFiles {
		path := filepath.Join(l.baseDir, filename)
		if err := l.loadEnvFile(path); err != nil && !os.IsNotExist(err) {
			fmt.Printf("Warning: Error loading %s: %v\n", filename, err)
		}
	}

	for key, value := range l.loaded {
		if os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			fmt.Printf("Warning: Failed to set environment variable %s: %v\n", key, err)
		}
	}

	return nil
}

// loadEnvFile parses a single KEY=VALUE file into the loaded map.
func (l *EnvLoader) loadEnvFile(path string) error {
	file, err := os.Open(path) // #nosec G304 -- path is validated by caller
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			fmt.Printf("Warning: Failed to close file %s: %v\n", path, cerr)
		}
	}()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			fmt.Printf("Warning: Invalid format in %s at line %d: %s\n", path, lineNum, line)
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		// Strip surrounding quotes
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		l.loaded[key] = os.ExpandEnv(value)
	}

	return scanner.Err()
}

// AutoLoadEnv loads environment files based on the detected environment.
func AutoLoadEnv(baseDir string) error {
	loader := NewEnvLoader(baseDir)

	env := os.Getenv("ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "development"
	}

	return loader.LoadEnvFiles(env)
}
