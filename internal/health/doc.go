// Package health reports liveness: an optional /healthz HTTP endpoint and
// the systemd notify protocol (READY, STOPPING, WATCHDOG).
package health
