package watcher

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// SVNDirName is the version-control metadata directory that is never watched.
const SVNDirName = ".svn"

// Wildcard accepts files with any extension, including none.
const Wildcard = "*"

// ExtensionSet is an immutable set of accepted file extensions.
// Extensions are stored without a leading dot.
type ExtensionSet struct {
	exts map[string]struct{}
}

// NewExtensionSet builds a set from the given extensions.
// No extensions means the wildcard.
func NewExtensionSet(extensions ...string) ExtensionSet {
	if len(extensions) == 0 {
		extensions = []string{Wildcard}
	}
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		exts[ext] = struct{}{}
	}
	return ExtensionSet{exts: exts}
}

// Contains reports whether ext is a member of the set.
func (s ExtensionSet) Contains(ext string) bool {
	_, ok := s.exts[ext]
	return ok
}

// IsWildcard reports whether the set accepts every extension.
func (s ExtensionSet) IsWildcard() bool {
	return s.Contains(Wildcard)
}

// Accepts reports whether a file with the given base name matches the set.
func (s ExtensionSet) Accepts(name string) bool {
	if s.IsWildcard() {
		return true
	}
	ext, ok := Extension(name)
	return ok && s.Contains(ext)
}

// Extension returns the substring after the last "." of the base name.
// The second result is false when the name has no dot at all.
func Extension(name string) (string, bool) {
	name = filepath.Base(name)
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return "", false
	}
	return name[i+1:], true
}

// IsValidDirectoryToMonitor reports whether a directory may be descended
// into: it must be a visible directory not named .svn.
func IsValidDirectoryToMonitor(path string, info fs.FileInfo) bool {
	if info == nil || !info.IsDir() {
		return false
	}
	return !isHidden(path, info) && info.Name() != SVNDirName
}

// IsValidFileToMonitor reports whether a file qualifies for change
// notifications under the given extension set.
func IsValidFileToMonitor(path string, info fs.FileInfo, exts ExtensionSet) bool {
	if info == nil || info.IsDir() {
		return false
	}
	name := info.Name()
	if strings.HasPrefix(name, ".") || isHidden(path, info) {
		return false
	}
	if inSVNDir(path) {
		return false
	}
	return exts.Accepts(name)
}

// inSVNDir reports whether any parent segment of path is .svn.
func inSVNDir(path string) bool {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	sep := string(filepath.Separator)
	return strings.Contains(path, sep+SVNDirName+sep)
}
