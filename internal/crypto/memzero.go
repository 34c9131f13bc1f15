package crypto

import "merklesig/internal/util/memzero"

// Wipe zeroes each provided buffer.
func Wipe(bufs ...[]byte) { memzero.ZeroAll(bufs...) }
