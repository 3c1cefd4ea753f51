// Package daemonrun wires configuration into running components: it dials
// the chain, resolves the contract, builds the deriver, submitter and
// storage addresser, and runs the daemon until a signal arrives.
package daemonrun
