package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveAndPath(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(filepath.Join(dir, "exports"))
	require.NoError(t, err)

	rel, err := store.Save("nested/students.csv", []byte("id,regNo\n"))
	require.NoError(t, err)
	require.Equal(t, "nested/students.csv", rel)

	body, err := os.ReadFile(store.Path(rel))
	require.NoError(t, err)
	require.Equal(t, "id,regNo\n", string(body))

	require.Equal(t, filepath.Join(dir, "exports", "nested", "students.csv"), store.Path(rel))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("old.csv", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("fresh.csv", []byte("fresh"))
	require.NoError(t, err)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path("old.csv"), past, past))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{"old.csv"}, deleted)

	_, err = os.Stat(store.Path("fresh.csv"))
	require.NoError(t, err)
}

func TestLocalStorageSaveOverwritesAtomically(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("courses.csv", []byte("first"))
	require.NoError(t, err)
	_, err = store.Save("courses.csv", []byte("second"))
	require.NoError(t, err)

	body, err := os.ReadFile(store.Path("courses.csv"))
	require.NoError(t, err)
	require.Equal(t, "second", string(body))

	files, err := store.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "courses.csv", files[0].Name)
	require.EqualValues(t, len("second"), files[0].Size)
}

func TestLocalStorageConfinesNames(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(filepath.Join(dir, "exports"))
	require.NoError(t, err)

	rel, err := store.Save("../../escape.csv", []byte("x"))
	require.NoError(t, err)
	require.Equal(t, "escape.csv", rel)
	require.Equal(t, filepath.Join(dir, "exports", "escape.csv"), store.Path("../escape.csv"))

	_, err = os.Stat(filepath.Join(dir, "escape.csv"))
	require.True(t, os.IsNotExist(err))
}

func TestLocalStorageListAndPruneEmptyDirs(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("transcripts/R1-20240501T080000.pdf", []byte("%PDF"))
	require.NoError(t, err)
	_, err = store.Save("students.csv", []byte("id\n"))
	require.NoError(t, err)

	files, err := store.List()
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "students.csv", files[0].Name)
	require.Equal(t, "transcripts/R1-20240501T080000.pdf", files[1].Name)

	past := time.Now().Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path(files[1].Name), past, past))
	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{"transcripts/R1-20240501T080000.pdf"}, deleted)

	_, err = os.Stat(store.Path("transcripts"))
	require.True(t, os.IsNotExist(err))
}
