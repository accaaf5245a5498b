//go:build !windows

package watcher

import (
	"io/fs"
	"strings"
)

func isHidden(_ string, info fs.FileInfo) bool {
	return strings.HasPrefix(info.Name(), ".")
}
