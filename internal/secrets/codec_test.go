package secrets

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	codec := NewCodec()

	encoded, err := codec.Encrypt("s3cret-value", "machine-identity")
	require.NoError(t, err)

	plaintext, err := codec.Decrypt(encoded, "machine-identity")
	require.NoError(t, err)
	assert.Equal(t, "s3cret-value", plaintext)
}

func TestCodec_RoundTripEmptyPlaintext(t *testing.T) {
	codec := NewCodec()

	encoded, err := codec.Encrypt("", "machine-identity")
	require.NoError(t, err)

	plaintext, err := codec.Decrypt(encoded, "machine-identity")
	require.NoError(t, err)
	assert.Equal(t, "", plaintext)
}

func TestCodec_EncryptIsNonDeterministic(t *testing.T) {
	codec := NewCodec()

	first, err := codec.Encrypt("same-plaintext", "same-secret")
	require.NoError(t, err)
	second, err := codec.Encrypt("same-plaintext", "same-secret")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "fresh salt and nonce must make ciphertexts differ")
}

func TestCodec_BlobLayout(t *testing.T) {
	codec := NewCodec()

	encoded, err := codec.Encrypt("abc", "secret")
	require.NoError(t, err)

	blob, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	// salt(16) + nonce(12) + tag(16) + len("abc")
	assert.Len(t, blob, 16+12+16+3)
}

func TestCodec_WrongSecretFails(t *testing.T) {
	codec := NewCodec()

	encoded, err := codec.Encrypt("payload", "secret-one")
	require.NoError(t, err)

	_, err = codec.Decrypt(encoded, "secret-two")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestCodec_TamperDetection(t *testing.T) {
	codec := NewCodec()

	encoded, err := codec.Encrypt("payload-to-protect", "secret")
	require.NoError(t, err)

	blob, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)

	// Flip one byte in the tag region, then one in the ciphertext region.
	regions := map[string]int{
		"tag":        16 + 12,
		"ciphertext": 16 + 12 + 16,
	}
	for region, offset := range regions {
		tampered := make([]byte, len(blob))
		copy(tampered, blob)
		tampered[offset] ^= 0x01

		_, err := codec.Decrypt(base64.StdEncoding.EncodeToString(tampered), "secret")
		assert.ErrorIs(t, err, ErrAuthenticationFailed, "tampered %s must not decrypt", region)
	}
}

func TestCodec_MalformedCiphertext(t *testing.T) {
	codec := NewCodec()

	_, err := codec.Decrypt("not-base64!!!", "secret")
	assert.ErrorIs(t, err, ErrMalformedCiphertext)

	short := base64.StdEncoding.EncodeToString([]byte("too short"))
	_, err = codec.Decrypt(short, "secret")
	assert.ErrorIs(t, err, ErrMalformedCiphertext)
}
