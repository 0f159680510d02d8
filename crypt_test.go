package strata

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestAESSealerRoundTrip(t *testing.T) {
	sealer, err := NewAESSealer("correct horse battery staple")
	require.NoError(t, err)

	plaintext := []byte("port = 8080\napi_key = \"secret\"\n")

	sealed, err := sealer.Seal(plaintext)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "api_key")

	opened, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestAESSealerNoncePerCall(t *testing.T) {
	sealer, err := NewAESSealer("pass")
	require.NoError(t, err)

	a, err := sealer.Seal([]byte("same input"))
	require.NoError(t, err)
	b, err := sealer.Seal([]byte("same input"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestAESSealerOpenFailures(t *testing.T) {
	sealer, err := NewAESSealer("pass")
	require.NoError(t, err)

	sealed, err := sealer.Seal([]byte("payload"))
	require.NoError(t, err)

	t.Run("Tampered", func(t *testing.T) {
		tampered := append([]byte(nil), sealed...)
		tampered[len(tampered)-1] ^= 0x01

		_, err := sealer.Open(tampered)
		require.Error(t, err)
		var eerr *EncryptionError
		assert.True(t, errors.As(err, &eerr))
	})

	t.Run("WrongPassphrase", func(t *testing.T) {
		other, err := NewAESSealer("different")
		require.NoError(t, err)

		_, err = other.Open(sealed)
		require.Error(t, err)
		var eerr *EncryptionError
		assert.True(t, errors.As(err, &eerr))
	})

	t.Run("Truncated", func(t *testing.T) {
		_, err := sealer.Open([]byte{0x01, 0x02})
		require.Error(t, err)
		var eerr *EncryptionError
		assert.True(t, errors.As(err, &eerr))
	})
}

func TestNewAESSealerRejectsEmptyPassphrase(t *testing.T) {
	_, err := NewAESSealer("")
	assert.Error(t, err)
}

func TestAESSealerProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sealer, err := NewAESSealer(rapid.StringMatching(`.{1,32}`).Draw(t, "passphrase"))
		require.NoError(t, err)

		plaintext := rapid.SliceOfN(rapid.Byte(), 1, 4096).Draw(t, "plaintext")

		sealed, err := sealer.Seal(plaintext)
		require.NoError(t, err)

		opened, err := sealer.Open(sealed)
		require.NoError(t, err)
		assert.Equal(t, plaintext, opened)
	})
}
