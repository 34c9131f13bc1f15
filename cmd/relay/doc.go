// Package main runs the merklesig relay: a directory of published public
// keys and a per-user queue of signed envelopes. State lives in leveldb
// when --data is given and in memory otherwise.
//
// HTTP API
//
//	GET  /healthz
//	PUT  /keys/{name}          publish an encoded public key (409 if taken)
//	GET  /keys/{name}          fetch a published key
//	POST /msg/{user}           enqueue an envelope for {user}
//	GET  /msg/{user}?limit=N   list up to N queued envelopes, oldest first
//	POST /msg/{user}/ack       drop the first {"count": N} envelopes
//	POST /verify               check {public_key, message, signature}
//	GET  /metrics              Prometheus metrics
//
// The relay never holds private keys. Envelopes are verified by their
// recipients, not by the relay.
package main
