// Package logging provides structured logging for dirwatch.
//
// By default, logs are human-readable text on stderr at info level. With
// --debug, JSON logs are also written to ~/.dirwatch/logs/dirwatch.log
// through a size-rotated writer, and can be read back with the Viewer.
package logging
