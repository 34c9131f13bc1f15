// Package relay holds both sides of the relay service: an HTTP client that
// implements domain.RelayClient, and a gin Server that runs the public-key
// directory and the per-user envelope mailboxes.
//
// The relay is untrusted for integrity. Envelopes are signed end to end, and
// a published key can only be replaced by an identical one, so the relay can
// drop or delay traffic but cannot forge it.
//
// Supported operations include:
//   - Publishing and fetching wire-encoded public keys by name.
//   - Posting envelopes to a user's mailbox, fetching and acknowledging them.
//   - Stateless signature verification for clients without the toolchain.
//
// All requests are JSON over HTTP and accept a context for cancellation and
// deadlines. Non-2xx statuses are returned as errors with the HTTP method,
// path, and status text to aid diagnostics.
package relay
