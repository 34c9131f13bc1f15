// Package memzero clears secret key material.
package memzero

import "runtime"

// Zero overwrites b with zeros. The KeepAlive keeps the stores from being
// dropped when b is not read again.
func Zero(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}

// ZeroAll zeroes every buffer in bufs.
func ZeroAll(bufs ...[]byte) {
	for _, b := range bufs {
		Zero(b)
	}
}
