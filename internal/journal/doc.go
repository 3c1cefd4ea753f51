// Package journal keeps an SQLite audit trail of mint workflow sessions and the
// transactions they submitted.
//
// Rows are written behind the workflow as it transitions and are read back only
// for history views. A workflow is never rebuilt from the journal; a restart of
// the process starts every workflow from scratch.
//
// The schema is versioned with a schema_version table. When the embedded schema
// changes, bump schemaVersion; existing journals must then be deleted.
package journal
