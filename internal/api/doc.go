// Package api exposes mint workflow sessions over HTTP for a presentation
// layer.
//
// # Routes
//
// All routes live under /api. Every route except /api/health requires
// "Authorization: Bearer <token>" when a token is configured.
//
//	GET    /api/health
//	POST   /api/sessions
//	GET    /api/sessions/{id}
//	DELETE /api/sessions/{id}
//	POST   /api/sessions/{id}/identifier   {"videoId","title"}
//	GET    /api/sessions/{id}/ownership
//	POST   /api/sessions/{id}/ownership    {"confirmed"}
//	POST   /api/sessions/{id}/metadata
//	POST   /api/sessions/{id}/mint
//	POST   /api/sessions/{id}/restart
//	GET    /api/sessions/{id}/events       text/event-stream of snapshots
//	GET    /api/history?limit=N
//	GET    /api/history/{id}
//
// # Errors
//
// Failures are reported as ErrorResponse. Validation errors map to 422, guard
// violations and in-flight steps to 409, failures of the chain or storage
// backends to 502 and unknown sessions to 404. When a session exists the
// error body also carries its snapshot so clients can render the retry point.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps in history payloads use RFC3339
// with milliseconds. Session payloads are mint.Snapshot values as-is.
package api
