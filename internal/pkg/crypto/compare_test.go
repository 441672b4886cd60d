package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantTimeEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b []byte
		want bool
	}{
		{"equal", []byte("hunter2"), []byte("hunter2"), true},
		{"both empty", []byte{}, []byte{}, true},
		{"nil and empty", nil, []byte{}, true},
		{"first byte differs", []byte("xunter2"), []byte("hunter2"), false},
		{"last byte differs", []byte("hunter3"), []byte("hunter2"), false},
		{"shorter", []byte("hunter"), []byte("hunter2"), false},
		{"longer", []byte("hunter22"), []byte("hunter2"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConstantTimeEqual(tt.a, tt.b))
			assert.Equal(t, tt.want, ConstantTimeEqualString(string(tt.a), string(tt.b)))
		})
	}
}

func TestFoldDiffVisitsEveryByte(t *testing.T) {
	secret := []byte("correct horse battery staple")

	// The number of visited pairs must not depend on where the first
	// mismatch is.
	for pos := range secret {
		candidate := append([]byte(nil), secret...)
		candidate[pos] ^= 0x01

		diff, steps := foldDiff(candidate, secret)
		require.NotZero(t, diff, "mismatch at %d not detected", pos)
		require.Equal(t, len(secret), steps, "mismatch at %d", pos)
	}

	diff, steps := foldDiff(secret, secret)
	assert.Zero(t, diff)
	assert.Equal(t, len(secret), steps)
}

func TestComputeSHA256Empty(t *testing.T) {
	assert.Equal(t, EmptySHA256, ComputeSHA256(nil))
	assert.Equal(t, EmptySHA256, ComputeSHA256([]byte{}))
	assert.True(t, ValidateSHA256(EmptySHA256))
	assert.False(t, ValidateSHA256("E3B0"))
}

func TestHMACSHA256(t *testing.T) {
	// RFC 4231 test case 2.
	mac := HMACSHA256([]byte("Jefe"), []byte("what do ya want for nothing?"))
	assert.Equal(t, "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843", encodeHex(mac))
}

func TestGenerateSecret(t *testing.T) {
	_, err := GenerateSecret(8)
	require.ErrorIs(t, err, ErrSecretTooShort)

	a, err := GenerateSecret(32)
	require.NoError(t, err)
	b, err := GenerateSecret(32)
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
	for _, c := range a {
		assert.Contains(t, secretChars, string(c))
	}
}
