package crypto

import "crypto/subtle"

// ConstantTimeEqual reports whether a and b hold the same bytes.
//
// A length mismatch is rejected immediately; lengths are not secret here.
// For equal lengths every byte pair is visited, so the running time does not
// depend on where the first difference sits. Every secret comparison in this
// module goes through this function.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	diff, _ := foldDiff(a, b)
	return subtle.ConstantTimeByteEq(diff, 0) == 1
}

// ConstantTimeEqualString is ConstantTimeEqual for strings.
func ConstantTimeEqualString(a, b string) bool {
	return ConstantTimeEqual([]byte(a), []byte(b))
}

// foldDiff ORs together the XOR of every byte pair. It returns the folded
// difference and the number of pairs visited. Callers guarantee equal lengths.
func foldDiff(a, b []byte) (byte, int) {
	var diff byte
	steps := 0
	for i := range a {
		diff |= a[i] ^ b[i]
		steps++
	}
	return diff, steps
}
