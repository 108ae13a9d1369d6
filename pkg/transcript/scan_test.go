package transcript

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("Alice: hi"), 0o644))
}

func TestScan_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.vtt"))
	writeFile(t, filepath.Join(dir, "a.txt"))
	writeFile(t, filepath.Join(dir, "c.docx"))
	writeFile(t, filepath.Join(dir, ".hidden", "d.txt"))
	writeFile(t, filepath.Join(dir, "sub", "e.md"))

	files, err := Scan(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.vtt"),
		filepath.Join(dir, "sub", "e.md"),
	}, files)
}

func TestScan_SingleFile(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "one.TXT")
	other := filepath.Join(dir, "two.docx")
	writeFile(t, txt)
	writeFile(t, other)

	files, err := Scan(txt)
	require.NoError(t, err)
	assert.Equal(t, []string{txt}, files)

	files, err = Scan(other)
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = Scan(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestTitleFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/x/team_sync-notes.txt", "Team Sync Notes"},
		{"Team Meeting-20250218 1509-1.vtt", "Team Meeting"},
		{"Weekly Sync - 09092025.md", "Weekly Sync"},
		{"quarterly_review_20250909.pdf", "Quarterly Review"},
		{"---.txt", "Meeting"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleFromPath(tt.path))
		})
	}
}
