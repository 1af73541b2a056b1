// Package services runs gatewayd's long-lived parts under a suture
// supervisor: the HTTP server and the gateway lifecycle. Cancelling the
// tree's context shuts both down; the gateway child is stopped before Serve
// returns.
package services
