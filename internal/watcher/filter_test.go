package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInfo is an in-memory fs.FileInfo.
type fakeInfo struct {
	name string
	dir  bool
}

func (f fakeInfo) Name() string { return f.name }
func (f fakeInfo) Size() int64  { return 0 }
func (f fakeInfo) Mode() fs.FileMode {
	if f.dir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}
func (f fakeInfo) ModTime() time.Time { return time.Time{} }
func (f fakeInfo) IsDir() bool        { return f.dir }
func (f fakeInfo) Sys() any           { return nil }

func fileAt(path string) (string, fs.FileInfo) {
	return path, fakeInfo{name: filepath.Base(path)}
}

func dirAt(path string) (string, fs.FileInfo) {
	return path, fakeInfo{name: filepath.Base(path), dir: true}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"a.txt", "txt", true},
		{"archive.tar.gz", "gz", true},
		{"Makefile", "", false},
		{"trailing.", "", true},
		{filepath.Join("dir.d", "file"), "", false},
		{filepath.Join("dir", "file.yaml"), "yaml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extension(tt.name)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestExtensionSet(t *testing.T) {
	t.Run("no extensions means wildcard", func(t *testing.T) {
		s := NewExtensionSet()
		assert.True(t, s.IsWildcard())
		assert.True(t, s.Accepts("Makefile"))
	})

	t.Run("explicit set", func(t *testing.T) {
		s := NewExtensionSet("go", "yaml")
		assert.False(t, s.IsWildcard())
		assert.True(t, s.Accepts("main.go"))
		assert.True(t, s.Accepts("conf.yaml"))
		assert.False(t, s.Accepts("conf.yml"))
		assert.False(t, s.Accepts("Makefile"), "no extension only matches the wildcard")
	})

	t.Run("zero value accepts nothing", func(t *testing.T) {
		var s ExtensionSet
		assert.False(t, s.Accepts("a.txt"))
	})
}

func TestIsValidDirectoryToMonitor(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "project")

	tests := []struct {
		name string
		path string
		dir  bool
		want bool
	}{
		{"plain directory", filepath.Join(root, "src"), true, true},
		{"svn metadata", filepath.Join(root, SVNDirName), true, false},
		{"hidden directory", filepath.Join(root, ".git"), true, false},
		{"dot-named cache", filepath.Join(root, ".cache"), true, false},
		{"regular file", filepath.Join(root, "main.go"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := fakeInfo{name: filepath.Base(tt.path), dir: tt.dir}
			assert.Equal(t, tt.want, IsValidDirectoryToMonitor(tt.path, info))
		})
	}

	assert.False(t, IsValidDirectoryToMonitor(root, nil))
}

func TestIsValidFileToMonitor(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "project")
	txt := NewExtensionSet("txt")
	all := NewExtensionSet(Wildcard)

	tests := []struct {
		name string
		path string
		dir  bool
		exts ExtensionSet
		want bool
	}{
		{"matching extension", filepath.Join(root, "a.txt"), false, txt, true},
		{"other extension", filepath.Join(root, "a.go"), false, txt, false},
		{"wildcard any extension", filepath.Join(root, "a.go"), false, all, true},
		{"wildcard no extension", filepath.Join(root, "Makefile"), false, all, true},
		{"dotfile with accepted extension", filepath.Join(root, ".env"), false, NewExtensionSet("env"), false},
		{"dotfile with wildcard", filepath.Join(root, ".hidden.txt"), false, all, false},
		{"inside svn metadata", filepath.Join(root, SVNDirName, "entries.txt"), false, txt, false},
		{"nested svn metadata", filepath.Join(root, "src", SVNDirName, "pristine", "a.txt"), false, all, false},
		{"directory with matching name", filepath.Join(root, "notes.txt"), true, txt, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := fakeInfo{name: filepath.Base(tt.path), dir: tt.dir}
			assert.Equal(t, tt.want, IsValidFileToMonitor(tt.path, info, tt.exts))
		})
	}

	assert.False(t, IsValidFileToMonitor(filepath.Join(root, "a.txt"), nil, txt))
}

func TestIsValidFileToMonitor_WildcardIgnoresActualExtension(t *testing.T) {
	// Given: a wildcard set and a range of visible file names
	names := []string{"a.txt", "b.GO", "c", "d.tar.gz", "e.", "f g.md"}

	for _, name := range names {
		path, info := fileAt(filepath.Join(string(filepath.Separator), "src", name))
		// Then: every one is accepted
		assert.True(t, IsValidFileToMonitor(path, info, NewExtensionSet(Wildcard)), name)
	}
}

func TestIsValidDirectoryToMonitor_HiddenOrSVNNeverValid(t *testing.T) {
	for _, name := range []string{SVNDirName, ".git", ".idea", ".x"} {
		path, info := dirAt(filepath.Join(string(filepath.Separator), "src", name))
		assert.False(t, IsValidDirectoryToMonitor(path, info), name)
	}
}

func TestFilters_OnRealFilesystem(t *testing.T) {
	// Given: a real tree with a file, a dotfile and an svn directory
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, SVNDirName), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, SVNDirName, "b.txt"), []byte("b"), 0o644))

	stat := func(p string) fs.FileInfo {
		info, err := os.Stat(p)
		require.NoError(t, err)
		return info
	}
	txt := NewExtensionSet("txt")

	// Then: only the visible file and the root directory qualify
	assert.True(t, IsValidFileToMonitor(filepath.Join(root, "a.txt"), stat(filepath.Join(root, "a.txt")), txt))
	assert.False(t, IsValidFileToMonitor(filepath.Join(root, ".env"), stat(filepath.Join(root, ".env")), NewExtensionSet("env")))
	svnFile := filepath.Join(root, SVNDirName, "b.txt")
	assert.False(t, IsValidFileToMonitor(svnFile, stat(svnFile), txt))
	assert.True(t, IsValidDirectoryToMonitor(root, stat(root)))
	assert.False(t, IsValidDirectoryToMonitor(filepath.Join(root, SVNDirName), stat(filepath.Join(root, SVNDirName))))
}
