package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/martijn/snapchain/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateRoot(t *testing.T) {
	base := t.TempDir()
	root := makeRepo(t, filepath.Join(base, "project"))
	deep := filepath.Join(root, "src", "pkg", "deep")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	l := NewLocator()

	tests := []struct {
		name  string
		start string
	}{
		{"at root", root},
		{"nested directory", deep},
		{"relative segments", filepath.Join(deep, "..", "..")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.LocateRoot(tt.start)
			require.NoError(t, err)
			assert.Equal(t, root, got)
		})
	}
}

func TestLocateRoot_FollowsSymlinks(t *testing.T) {
	base := t.TempDir()
	root := makeRepo(t, filepath.Join(base, "real"))
	link := filepath.Join(base, "link")
	require.NoError(t, os.Symlink(root, link))

	got, err := NewLocator().LocateRoot(link)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestLocateRoot_NotFound(t *testing.T) {
	dir := t.TempDir()

	_, err := NewLocator().LocateRoot(dir)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLocateRoot_IgnoresMarkerDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, domain.MarkerFileName), 0o755))

	_, err := NewLocator().LocateRoot(dir)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLocateParent(t *testing.T) {
	base := t.TempDir()
	outer := makeRepo(t, filepath.Join(base, "outer"))
	middle := makeRepo(t, filepath.Join(outer, "data", "middle"))
	inner := makeRepo(t, filepath.Join(middle, "inner"))

	l := NewLocator()

	got, err := l.LocateParent(inner)
	require.NoError(t, err)
	assert.Equal(t, middle, got, "nearest ancestor wins over the outer one")

	got, err = l.LocateParent(middle)
	require.NoError(t, err)
	assert.Equal(t, outer, got)

	_, err = l.LocateParent(outer)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLocateParent_NeverSelf(t *testing.T) {
	root := makeRepo(t, filepath.Join(t.TempDir(), "only"))

	_, err := NewLocator().LocateParent(root)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLocateParent_MissingDirectory(t *testing.T) {
	outer := makeRepo(t, filepath.Join(t.TempDir(), "outer"))

	got, err := NewLocator().LocateParent(filepath.Join(outer, "not", "created"))
	require.NoError(t, err)
	assert.Equal(t, outer, got)
}

func TestLocateParent_FilesystemRoot(t *testing.T) {
	_, err := NewLocator().LocateParent(string(filepath.Separator))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
