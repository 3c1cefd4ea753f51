// Package chain submits mint transactions and tracks their lifecycle.
//
// Submitter.Submit signs and sends mint(videoId, metadataHash) and returns a
// Handle once the node has accepted the transaction. The handle moves through
// submitted, included and then confirmed or failed, driven by a receipt watcher
// that polls the node. Transitions are monotonic and happen at most once each;
// observers are called serially in transition order, and a new observer is
// immediately replayed the latest event.
package chain
