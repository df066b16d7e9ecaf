// Package trustprobe verifies SSH key trust with replication appliances.
// A probe performs a full handshake (dial, host key verification, public
// key auth) and immediately disconnects; it never opens a session or runs
// a command. The outcome refreshes the target's ssh_trust_established
// flag, which preflight and the SLA diagnostics engine read.
package trustprobe
