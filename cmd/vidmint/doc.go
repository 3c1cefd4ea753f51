// Package main implements the vidmint command line interface.
//
// The CLI drives a mint session directly in the terminal (mint), previews the
// pieces of a mint without submitting anything (derive, metadata), reads the
// local journal (history) and runs the session API daemon (serve). Commands
// share one lazily loaded configuration via commandContext. status and logs
// report daemon health and show the log file.
package main
