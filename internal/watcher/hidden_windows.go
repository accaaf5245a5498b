//go:build windows

package watcher

import (
	"io/fs"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"
)

// isHidden honours both the dotfile convention and FILE_ATTRIBUTE_HIDDEN.
func isHidden(path string, info fs.FileInfo) bool {
	if strings.HasPrefix(info.Name(), ".") {
		return true
	}
	if data, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		return data.FileAttributes&windows.FILE_ATTRIBUTE_HIDDEN != 0
	}
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return false
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return false
	}
	return attrs&windows.FILE_ATTRIBUTE_HIDDEN != 0
}
