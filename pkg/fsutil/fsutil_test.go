package fsutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean", "Quarterly Reports", "Quarterly Reports"},
		{"reserved chars", `a<b>c:d"e/f\g|h?i*j`, "a_b_c_d_e_f_g_h_i_j"},
		{"control chars", "line\nbreak\ttab", "line_break_tab"},
		{"trailing dots and spaces", "archive... ", "archive"},
		{"unicode preserved", "決算資料", "決算資料"},
		{"truncated", strings.Repeat("a", 150), strings.Repeat("a", 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.input))
		})
	}
}

func TestEnsureDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDirectory(dir))
	require.NoError(t, EnsureDirectory(dir), "existing directory is fine")

	file := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	err := EnsureDirectory(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.json")
	in := map[string]any{"name": "Reports", "files": []any{"a.txt"}}
	require.NoError(t, WriteJSON(path, in))
	assert.True(t, Exists(path))

	var out map[string]any
	require.NoError(t, ReadJSON(path, &out))
	assert.Equal(t, in, out)
}

func TestReadJSONMissing(t *testing.T) {
	var out map[string]any
	err := ReadJSON(filepath.Join(t.TempDir(), "absent.json"), &out)
	require.Error(t, err)
	assert.False(t, Exists(filepath.Join(t.TempDir(), "absent.json")))
}
