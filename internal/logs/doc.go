// Package logs reads the JSON log file written by the daemon and CLI.
//
// Tail returns the last lines of the file, optionally restricted to one mint
// session, and Follow streams lines appended after an offset until its
// context ends. Both keep memory bounded by the requested line count.
package logs
