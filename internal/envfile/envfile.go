// Package envfile resolves environment-file references into key/value
// pairs. The composition engine only carries the references; this
// package is the environment/secrets collaborator the CLI and executor
// use to materialize them.
package envfile

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Parse reads KEY=VALUE lines. Blank lines and #-comments are skipped,
// an optional "export " prefix is tolerated, and single or double quotes
// around values are stripped.
func Parse(r io.Reader) (map[string]string, error) {
	result := make(map[string]string)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		line = strings.TrimPrefix(line, "export ")

		idx := strings.Index(line, "=")
		if idx <= 0 {
			return nil, fmt.Errorf("line %d: expected KEY=VALUE, got %q", lineNo, line)
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		result[key] = unquote(value)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read env file: %w", err)
	}

	return result, nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// Load reads one env file. Files with ".sops." in their name are
// decrypted by shelling out to the sops binary first.
func Load(ctx context.Context, path string) (map[string]string, error) {
	if strings.Contains(filepath.Base(path), ".sops.") {
		return loadSops(ctx, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open env file: %w", err)
	}
	defer f.Close()

	env, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return env, nil
}

// LoadAll loads env files in order and merges them, later files
// overriding earlier ones for duplicate keys.
func LoadAll(ctx context.Context, paths []string) (map[string]string, error) {
	merged := make(map[string]string)

	for _, path := range paths {
		env, err := Load(ctx, path)
		if err != nil {
			return nil, err
		}
		for k, v := range env {
			merged[k] = v
		}
	}

	return merged, nil
}

// loadSops decrypts a sops-encrypted dotenv file.
func loadSops(ctx context.Context, path string) (map[string]string, error) {
	cmd := exec.CommandContext(ctx, "sops", "--input-type", "dotenv", "--output-type", "dotenv", "-d", path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("sops decrypt failed for %s: %w: %s", path, err, stderr.String())
	}

	env, err := Parse(&stdout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return env, nil
}

// Flatten renders an environment map to sorted KEY=VALUE pairs, the
// form the container runtime expects.
func Flatten(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+env[k])
	}
	return pairs
}
