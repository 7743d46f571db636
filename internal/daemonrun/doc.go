// Package daemonrun wires configuration, logging, the queue store and the
// retention sweeper into the rowqd process.
package daemonrun
