// Package zero provides helpers to clear sensitive byte data from memory.
package zero

// Bytes sets all bytes in the passed slice to zero. This is used to
// explicitly clear private key material from memory.
//
// In general, prefer to use the fixed-sized zeroing functions (Bytea*)
// when zeroing bytes as they are much more efficient than the variable
// sized zeroing func Bytes.
func Bytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Bytea32 clears the 32-byte array.
func Bytea32(b *[32]byte) {
	*b = [32]byte{}
}

// Bytea64 clears the 64-byte array.
func Bytea64(b *[64]byte) {
	*b = [64]byte{}
}
