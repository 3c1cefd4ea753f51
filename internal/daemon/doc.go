// Package daemon hosts the long-running vidmint process: it enforces a single
// instance through a lock file, owns the registry of live mint sessions,
// evicts idle ones and serves the session API.
//
// Sessions share the read-only chain and storage clients handed in through
// the workflow template; nothing else crosses session boundaries.
package daemon
