// Package wire defines the versioned byte layout for keys and signatures.
//
// Every encoded object starts with a fixed 12-byte header naming the
// scheme, the object kind, the hash algorithm and, for multi-use keys, the
// leaf count. Decoders reject anything that does not match exactly with
// ErrMalformedInput, and headers from a newer format with
// ErrUnsupportedVersion. Armor and Dearmor convert to and from the base64
// text form used in files and over the relay.
package wire
