package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
}

func TestCopyToTimestampedSkipsNestedRoot(t *testing.T) {
	source := t.TempDir()
	writeTree(t, source, map[string]string{
		"students.csv":     "id,regNo\n",
		"nested/deep.txt":  "hello",
		"backups/old/x.md": "previous backup",
	})
	root := filepath.Join(source, "backups")
	now := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	dest, files, err := CopyToTimestamped(source, root, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "backup-2024-03-01T10-30-00.000Z"), dest)
	assert.Equal(t, 2, files)

	body, err := os.ReadFile(filepath.Join(dest, "nested", "deep.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	_, err = os.Stat(filepath.Join(dest, "backups"))
	assert.True(t, os.IsNotExist(err))

	size, err := DirectorySize(dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len("id,regNo\n")+len("hello")), size)
}

func TestManifestDetectsTampering(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.txt": "alpha", "sub/b.txt": "beta"})

	manifest, err := WriteManifest(dir)
	require.NoError(t, err)
	body, err := os.ReadFile(manifest)
	require.NoError(t, err)
	assert.Contains(t, string(body), "  a.txt\n")
	assert.Contains(t, string(body), "  sub/b.txt\n")

	require.NoError(t, VerifyManifest(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("tampered"), 0o644))
	assert.Error(t, VerifyManifest(dir))
}

func TestArchiveRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "backup-x")
	writeTree(t, dir, map[string]string{"a.txt": "alpha", "sub/b.txt": "beta"})

	dest := filepath.Join(t.TempDir(), "backup-x.tar.br")
	size, err := Archive(dir, dest)
	require.NoError(t, err)
	assert.Greater(t, size, int64(0))

	entries, err := ReadArchive(dest)
	require.NoError(t, err)
	assert.Equal(t, "alpha", entries["backup-x/a.txt"])
	assert.Equal(t, "beta", entries["backup-x/sub/b.txt"])
}

func TestCopyToTimestampedRejectsRootEqualToSource(t *testing.T) {
	source := t.TempDir()
	writeTree(t, source, map[string]string{"students.csv": "id\n"})

	_, files, err := CopyToTimestamped(source, source+string(filepath.Separator)+".", time.Now())
	require.Error(t, err)
	assert.Equal(t, 0, files)

	entries, err := os.ReadDir(source)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestVerifyArchive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "backup-y")
	writeTree(t, dir, map[string]string{"a.txt": "alpha", "sub/b.txt": "beta"})
	_, err := WriteManifest(dir)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "backup-y.tar.br")
	_, err = Archive(dir, dest)
	require.NoError(t, err)
	require.NoError(t, VerifyArchive(dest, dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("changed"), 0o644))
	assert.Error(t, VerifyArchive(dest, dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("beta"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte("extra"), 0o644))
	assert.Error(t, VerifyArchive(dest, dir))
}
