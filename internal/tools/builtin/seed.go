// Package builtin implements the deterministic research tools. Both derive
// every number from the md5 digest of their argument, so the same input
// always produces a byte-identical payload without any PRNG state.
package builtin

import "crypto/md5"

// seed returns the md5 digest of s.
func seed(s string) [md5.Size]byte {
	return md5.Sum([]byte(s))
}

// mod folds bytes into an integer in [0, m), treating the slice as a
// big-endian number: r = (r*256 + b) mod m.
func mod(bytes []byte, m int) int {
	r := 0
	for _, b := range bytes {
		r = (r*256 + int(b)) % m
	}
	return r
}
