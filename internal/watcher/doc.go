// Package watcher detects file creations and modifications under a set of
// registered files and directories and reports them to listeners.
//
// Two detection strategies sit behind one contract:
//   - Polling: periodic stat-based scans, works on any filesystem
//   - Native: fsnotify events, falling back to polling if the OS facility fails
//
// Directories are filtered by extension; hidden entries and .svn metadata
// are never reported. Listeners are called on the watcher's goroutine in
// registration order.
//
// Usage:
//
//	w, err := watcher.New(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	w.AddListener(watcher.ListenerFuncs{
//	    Change: func(path string) { reload(path) },
//	})
//	if err := w.AddWatchDirectory("conf", "yaml", "yml"); err != nil {
//	    return err
//	}
//	if err := w.Start(ctx); err != nil {
//	    return err
//	}
//	defer w.Stop()
package watcher
