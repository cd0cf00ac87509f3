package vault

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef-test"

// Low scrypt cost keeps the tamper sweep fast.
func newTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := New(testSecret, WithCost(1<<10))
	require.NoError(t, err)
	return v
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr error
	}{
		{name: "missing secret", secret: "", wantErr: ErrNotConfigured},
		{name: "short secret", secret: "too-short", wantErr: ErrSecretTooShort},
		{name: "exactly minimum", secret: strings.Repeat("k", MinSecretLength)},
		{name: "long secret", secret: testSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := New(tt.secret)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, v)
				return
			}
			require.NoError(t, err)
			assert.True(t, v.IsConfigured())
		})
	}
}

func TestNilVaultIsNotConfigured(t *testing.T) {
	var v *Vault
	assert.False(t, v.IsConfigured())

	_, err := v.Encrypt("x")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = v.Decrypt("x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestRoundTrip(t *testing.T) {
	v := newTestVault(t)

	inputs := []string{
		"",
		"a",
		"radarr-api-key-0f3c9b",
		"admin:hunter2",
		"ünïcödé ✓ 日本語 🎬",
		strings.Repeat("long secret ", 200),
	}

	for _, in := range inputs {
		blob, err := v.Encrypt(in)
		require.NoError(t, err)

		out, err := v.Decrypt(blob)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	v := newTestVault(t)

	a, err := v.Encrypt("same input")
	require.NoError(t, err)
	b, err := v.Encrypt("same input")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)

	rawA, _ := base64.StdEncoding.DecodeString(a)
	rawB, _ := base64.StdEncoding.DecodeString(b)
	assert.NotEqual(t, rawA[:saltSize], rawB[:saltSize], "salt must be fresh")
	assert.NotEqual(t, rawA[saltSize:saltSize+nonceSize], rawB[saltSize:saltSize+nonceSize], "nonce must be fresh")
}

func TestBlobLayout(t *testing.T) {
	v := newTestVault(t)

	blob, err := v.Encrypt("12345")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)
	assert.Len(t, raw, saltSize+nonceSize+tagSize+5)
}

func TestDecryptFailsClosedOnTampering(t *testing.T) {
	v := newTestVault(t)

	blob, err := v.Encrypt("sonarr-key")
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)

	for i := range raw {
		tampered := append([]byte(nil), raw...)
		tampered[i] ^= 0x01

		out, err := v.Decrypt(base64.StdEncoding.EncodeToString(tampered))
		require.ErrorIsf(t, err, ErrDecryptionFailed, "byte %d flipped", i)
		assert.Empty(t, out)
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	v := newTestVault(t)
	other, err := New(strings.Repeat("z", 40), WithCost(1<<10))
	require.NoError(t, err)

	blob, err := v.Encrypt("jellyfin-token")
	require.NoError(t, err)

	_, err = other.Decrypt(blob)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptMalformedInput(t *testing.T) {
	v := newTestVault(t)

	tests := []struct {
		name  string
		input string
	}{
		{name: "legacy plaintext", input: "plain-api-key"},
		{name: "not base64", input: "%%%"},
		{name: "too short", input: base64.StdEncoding.EncodeToString([]byte("short"))},
		{name: "empty", input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Decrypt(tt.input)
			assert.True(t, errors.Is(err, ErrDecryptionFailed), "got %v", err)
		})
	}
}
