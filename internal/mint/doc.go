// Package mint implements the mint workflow: the state machine that takes a
// YouTube video identifier through token id derivation, the ownership
// attestation, metadata publication and the on-chain mint.
//
// A Workflow owns one session's state. Operations advance it step by step;
// external calls run outside the state lock and each step carries an
// in-flight flag so a second invocation is rejected with
// services.ErrStepInFlight instead of repeating a derive, upload or submit.
// Transaction lifecycle events from the chain package are applied under the
// same lock. Observers receive snapshots serially, in order.
package mint
