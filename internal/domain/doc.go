// Package domain defines the types, sentinel errors and interfaces shared by
// the stores, services, relay and CLI. It holds plain data and contracts
// only; the signature schemes live under internal/protocol.
package domain
