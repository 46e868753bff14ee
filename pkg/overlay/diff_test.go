package overlay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChangeSetDetectsAddedModifiedDeleted(t *testing.T) {
	base := t.TempDir()
	writeHostFile(t, base, "a.txt", "original")
	writeHostFile(t, base, "b.txt", "to be deleted")

	fs := newTestFS(t)
	_, err := Initialize(fs, Config{BasePath: base, MountPath: "/"})
	require.NoError(t, err)

	require.NoError(t, fs.WriteFile("/a.txt", []byte("changed")))
	require.NoError(t, fs.Unlink("/b.txt"))
	require.NoError(t, fs.WriteFile("/c.txt", []byte("new file")))

	changes, err := ChangeSet(fs, base, "/")
	require.NoError(t, err)

	byPath := make(map[string]Change)
	for _, c := range changes {
		byPath[c.Path] = c
	}

	require.Equal(t, ChangeModified, byPath["/a.txt"].Kind)
	require.Equal(t, "original", string(byPath["/a.txt"].OldContent))
	require.Equal(t, "changed", string(byPath["/a.txt"].NewContent))

	require.Equal(t, ChangeDeleted, byPath["/b.txt"].Kind)
	require.Equal(t, "to be deleted", string(byPath["/b.txt"].OldContent))

	require.Equal(t, ChangeAdded, byPath["/c.txt"].Kind)
	require.Equal(t, "new file", string(byPath["/c.txt"].NewContent))
}

func TestChangeSetNoChanges(t *testing.T) {
	base := t.TempDir()
	writeHostFile(t, base, "same.txt", "unchanged")

	fs := newTestFS(t)
	_, err := Initialize(fs, Config{BasePath: base, MountPath: "/"})
	require.NoError(t, err)

	changes, err := ChangeSet(fs, base, "/")
	require.NoError(t, err)
	require.Empty(t, changes)
}

func TestChangeSetUnderSubMountPath(t *testing.T) {
	base := t.TempDir()
	writeHostFile(t, base, "x.txt", "base content")

	fs := newTestFS(t)
	_, err := Initialize(fs, Config{BasePath: base, MountPath: "/layer"})
	require.NoError(t, err)

	require.NoError(t, fs.WriteFile("/layer/x.txt", []byte("modified")))

	changes, err := ChangeSet(fs, base, "/layer")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, "/x.txt", changes[0].Path)
	require.Equal(t, ChangeModified, changes[0].Kind)
}

func TestExportPatchAddedAndDeleted(t *testing.T) {
	changes := []Change{
		{Path: "/new.txt", Kind: ChangeAdded, NewContent: []byte("hello\n")},
		{Path: "/gone.txt", Kind: ChangeDeleted, OldContent: []byte("bye\n")},
	}
	patch, err := ExportPatch(changes)
	require.NoError(t, err)
	require.Contains(t, patch, "diff --git a/new.txt b/new.txt")
	require.Contains(t, patch, "/dev/null")
	require.Contains(t, patch, "diff --git a/gone.txt b/gone.txt")
	require.Contains(t, patch, "hello\n")
	require.Contains(t, patch, "bye\n")
}

func TestExportPatchModified(t *testing.T) {
	changes := []Change{
		{Path: "/f.txt", Kind: ChangeModified, OldContent: []byte("old\n"), NewContent: []byte("new\n")},
	}
	patch, err := ExportPatch(changes)
	require.NoError(t, err)
	require.Contains(t, patch, "diff --git a/f.txt b/f.txt")
	require.Contains(t, patch, "old\n")
	require.Contains(t, patch, "new\n")
}

func TestExportPatchEmptyChangeSet(t *testing.T) {
	patch, err := ExportPatch(nil)
	require.NoError(t, err)
	require.Empty(t, patch)
}
