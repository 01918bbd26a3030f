// Package fsutil holds the filesystem helpers shared by the materializer:
// name sanitizing, idempotent directory creation, and JSON file IO.
package fsutil

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// maxNameLength keeps sanitized names comfortably inside common
// filesystem limits.
const maxNameLength = 100

var invalidNameChars = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", "\"", "_",
	"/", "_", "\\", "_", "|", "_", "?", "_", "*", "_",
)

// SanitizeName makes an oracle-proposed name safe to use as a single path
// component. Reserved characters and control characters become underscores,
// trailing dots and spaces are stripped, and overlong names are truncated.
func SanitizeName(name string) string {
	cleaned := invalidNameChars.Replace(name)

	var b strings.Builder
	for _, r := range cleaned {
		if r < 0x20 || r == 0x7f {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}
	cleaned = strings.TrimRight(b.String(), ". ")
	cleaned = strings.TrimSpace(cleaned)

	if runes := []rune(cleaned); len(runes) > maxNameLength {
		cleaned = strings.TrimRight(string(runes[:maxNameLength]), ". ")
	}
	return cleaned
}

// EnsureDirectory creates path if needed. An existing directory is fine;
// an existing non-directory is an error.
func EnsureDirectory(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", path)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// Exists reports whether path refers to anything at all.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteJSON marshals v with indentation and writes it to path.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadJSON reads path and unmarshals it into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
