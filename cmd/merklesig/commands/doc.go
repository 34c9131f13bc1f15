// Package commands defines the merklesig CLI and wires dependencies for subcommands.
//
// Commands
//
//   - keygen   Generate a one-time or multi-use key pair
//   - sign     Sign a file or stdin with a stored key
//   - verify   Check a signature against a public key
//   - info     Show fingerprint, leaf count and remaining signatures
//   - publish  Upload a public key to the relay
//   - fetch    Download and import a public key from the relay
//   - send     Send a signed message to a peer
//   - recv     Fetch and verify queued messages
//
// # Implementation
//
// The root command builds the logger and the dependency graph (stores,
// services, relay client) before any subcommand runs and closes it after.
// Errors map to exit codes in ExitCode.
package commands
