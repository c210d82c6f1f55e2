package crypto

import "crypto/sha512"

// Sha512Half computes SHA-512 of the input and returns the first 256 bits.
// It is the hash used for transaction IDs and signing digests.
func Sha512Half(msg []byte) [32]byte {
	h := sha512.Sum512(msg)
	var out [32]byte
	copy(out[:], h[:32])
	return out
}
