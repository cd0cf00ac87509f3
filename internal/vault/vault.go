// Package vault seals credentials before they reach the configuration store.
//
// Every Encrypt call draws a fresh salt and nonce and derives a fresh
// AES-256 key from the master secret with scrypt, so no two records share
// a key. The output blob is
//
//	base64( salt[16] | nonce[12] | tag[16] | ciphertext )
//
// and fits in a single text column.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

const (
	// MinSecretLength is the shortest master secret accepted.
	MinSecretLength = 32

	saltSize  = 16
	nonceSize = 12
	tagSize   = 16
	keySize   = 32

	// scrypt parameters. N=2^14, r=8, p=1 costs ~16 MiB per derivation.
	defaultCost   = 1 << 14
	blockSize     = 8
	parallelism   = 1
	headerSize    = saltSize + nonceSize + tagSize
	minBlobLength = headerSize
)

var (
	// ErrNotConfigured is returned when no master secret was supplied.
	ErrNotConfigured = errors.New("vault: encryption key is not configured")
	// ErrSecretTooShort is returned when the master secret is below MinSecretLength.
	ErrSecretTooShort = fmt.Errorf("vault: encryption key must be at least %d characters", MinSecretLength)
	// ErrDecryptionFailed is returned for any malformed or tampered blob, or a wrong key.
	ErrDecryptionFailed = errors.New("vault: decryption failed")
)

// Vault encrypts and decrypts secrets with a key derived per record.
// A nil *Vault is valid and reports IsConfigured() == false.
type Vault struct {
	secret []byte
	cost   int
	random io.Reader
}

// Option customizes a Vault.
type Option func(*Vault)

// WithCost overrides the scrypt N parameter (power of two). Blobs can only
// be opened by a vault using the same cost.
func WithCost(n int) Option {
	return func(v *Vault) { v.cost = n }
}

// WithRandom overrides the source of salts and nonces.
func WithRandom(r io.Reader) Option {
	return func(v *Vault) { v.random = r }
}

// New validates the master secret and builds a Vault.
func New(secret string, opts ...Option) (*Vault, error) {
	if err := ValidateSecret(secret); err != nil {
		return nil, err
	}
	v := &Vault{
		secret: []byte(secret),
		cost:   defaultCost,
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// ValidateSecret checks a master secret without building a Vault.
func ValidateSecret(secret string) error {
	if secret == "" {
		return ErrNotConfigured
	}
	if len(secret) < MinSecretLength {
		return ErrSecretTooShort
	}
	return nil
}

// IsConfigured reports whether the vault holds a usable master secret.
func (v *Vault) IsConfigured() bool {
	return v != nil && len(v.secret) >= MinSecretLength
}

// Encrypt seals plaintext and returns the encoded blob.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if !v.IsConfigured() {
		return "", ErrNotConfigured
	}

	blob := make([]byte, headerSize, headerSize+len(plaintext))
	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	if _, err := io.ReadFull(v.random, blob[:saltSize+nonceSize]); err != nil {
		return "", fmt.Errorf("vault: generating salt and nonce: %w", err)
	}

	aead, err := v.aead(salt)
	if err != nil {
		return "", err
	}

	// Seal produces ciphertext|tag; the stored layout puts the tag first.
	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]
	copy(blob[saltSize+nonceSize:], tag)
	blob = append(blob, ciphertext...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens a blob produced by Encrypt. It never returns partial or
// unauthenticated plaintext: every failure is ErrDecryptionFailed.
func (v *Vault) Decrypt(encoded string) (string, error) {
	if !v.IsConfigured() {
		return "", ErrNotConfigured
	}

	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(blob) < minBlobLength {
		return "", ErrDecryptionFailed
	}

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	tag := blob[saltSize+nonceSize : headerSize]
	ciphertext := blob[headerSize:]

	aead, err := v.aead(salt)
	if err != nil {
		return "", err
	}

	sealed := make([]byte, 0, len(ciphertext)+tagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

func (v *Vault) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(v.secret, salt, v.cost, blockSize, parallelism, keySize)
	if err != nil {
		return nil, fmt.Errorf("vault: deriving key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: creating GCM: %w", err)
	}
	return aead, nil
}
