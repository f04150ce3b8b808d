package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Token material never reaches a backend in the clear. A Codec seals the
// token fields with AES-256-GCM; the key is derived from an operator
// passphrase with argon2id so the raw key never appears in config.

const (
	gcmNonceSize = 12
	keyLength    = 32
	sealedSep    = "|" // base64(nonce)|base64(ciphertext)

	// Derivation context. Changing it invalidates every sealed record.
	kdfSalt = "glaucoma-dashboard/session-vault/v1"
)

var ErrSealedFormat = errors.New("vault: malformed sealed value")

// Codec seals and opens token strings.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec derives an AES-256 key from the passphrase (argon2id) and returns
// a ready Codec.
func NewCodec(passphrase string) (*Codec, error) {
	if strings.TrimSpace(passphrase) == "" {
		return nil, errors.New("vault: empty passphrase")
	}
	key := argon2.IDKey([]byte(passphrase), []byte(kdfSalt), 3, 64*1024, 1, keyLength)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: aes: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: gcm: %w", err)
	}
	return &Codec{aead: aead}, nil
}

// Seal encrypts plain and returns base64(nonce)|base64(ciphertext).
// Sealing the empty string yields the empty string.
func (c *Codec) Seal(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("vault: nonce: %w", err)
	}
	ct := c.aead.Seal(nil, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(nonce) + sealedSep +
		base64.StdEncoding.EncodeToString(ct), nil
}

// Open decrypts a value produced by Seal.
func (c *Codec) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	nonceB64, ctB64, ok := strings.Cut(sealed, sealedSep)
	if !ok {
		return "", ErrSealedFormat
	}
	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil || len(nonce) != gcmNonceSize {
		return "", ErrSealedFormat
	}
	ct, err := base64.StdEncoding.DecodeString(ctB64)
	if err != nil {
		return "", ErrSealedFormat
	}
	plain, err := c.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("vault: open: %w", err)
	}
	return string(plain), nil
}

// encryptedStore wraps a Store, sealing token fields on Save and opening
// them on Load. Identity fields stay readable for operations.
type encryptedStore struct {
	inner Store
	codec *Codec
}

// Encrypted wraps inner so token material is sealed at rest.
func Encrypted(inner Store, codec *Codec) Store {
	return &encryptedStore{inner: inner, codec: codec}
}

func (s *encryptedStore) Load(ctx context.Context, sid string) (*Record, error) {
	rec, err := s.inner.Load(ctx, sid)
	if err != nil {
		return nil, err
	}
	cp := *rec
	if cp.AccessToken, err = s.codec.Open(rec.AccessToken); err != nil {
		return nil, err
	}
	if cp.RefreshToken, err = s.codec.Open(rec.RefreshToken); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *encryptedStore) Save(ctx context.Context, rec *Record) error {
	cp := *rec
	var err error
	if cp.AccessToken, err = s.codec.Seal(rec.AccessToken); err != nil {
		return err
	}
	if cp.RefreshToken, err = s.codec.Seal(rec.RefreshToken); err != nil {
		return err
	}
	return s.inner.Save(ctx, &cp)
}

func (s *encryptedStore) Delete(ctx context.Context, sid string) error {
	return s.inner.Delete(ctx, sid)
}
