// Package preflight provides readiness checks for the node, signer, storage
// service and filesystem paths that vidmint depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failed check so a
//     misconfiguration surfaces before the first session is created.
//   - The CLI "vidmint status" command renders RunAll results together with
//     CheckDaemon to display overall health.
//
// Checks for optional features report Passed with a "Disabled" detail.
package preflight
