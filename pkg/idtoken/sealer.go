package idtoken

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// hkdfInfo binds derived keys to this use. Changing it invalidates every issued token.
const hkdfInfo = "papeesearch portal idtoken v1"

var errOpen = errors.New("cannot open token payload")

// gcmSealer seals with AES-256-GCM under a key derived once from the secret.
type gcmSealer struct {
	aead cipher.AEAD
}

func newGCMSealer(secret string) (*gcmSealer, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("idtoken: deriving key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("idtoken: creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("idtoken: creating gcm: %w", err)
	}

	return &gcmSealer{aead: aead}, nil
}

func (s *gcmSealer) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *gcmSealer) open(payload []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	if len(payload) < ns+s.aead.Overhead() {
		return nil, errMalformed
	}

	plaintext, err := s.aead.Open(nil, payload[:ns], payload[ns:], nil)
	if err != nil {
		return nil, errOpen
	}
	return plaintext, nil
}

const (
	legacySaltSize = 8
	legacyKeySize  = 32
)

var legacyPrefix = []byte("Salted__")

// legacySealer produces OpenSSL "Salted__" payloads: key and IV are re-derived
// from the passphrase and a fresh salt on every call.
type legacySealer struct {
	passphrase []byte
}

func newLegacySealer(secret string) *legacySealer {
	return &legacySealer{passphrase: []byte(secret)}
}

func (s *legacySealer) seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, legacySaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	key, iv := evpBytesToKey(s.passphrase, salt, legacyKeySize, aes.BlockSize)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, 0, len(legacyPrefix)+legacySaltSize+len(padded))
	out = append(out, legacyPrefix...)
	out = append(out, salt...)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)
	return append(out, ct...), nil
}

func (s *legacySealer) open(payload []byte) ([]byte, error) {
	header := len(legacyPrefix) + legacySaltSize
	if len(payload) <= header || !bytes.HasPrefix(payload, legacyPrefix) {
		return nil, errMalformed
	}
	ct := payload[header:]
	if len(ct)%aes.BlockSize != 0 {
		return nil, errMalformed
	}

	key, iv := evpBytesToKey(s.passphrase, payload[len(legacyPrefix):header], legacyKeySize, aes.BlockSize)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ct)
	return pkcs7Unpad(plaintext, aes.BlockSize)
}

// evpBytesToKey is OpenSSL's EVP_BytesToKey with MD5 and a single iteration.
func evpBytesToKey(passphrase, salt []byte, keyLen, ivLen int) (key, iv []byte) {
	var derived, prev []byte
	for len(derived) < keyLen+ivLen {
		h := md5.New()
		h.Write(prev)
		h.Write(passphrase)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:keyLen], derived[keyLen : keyLen+ivLen]
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(bytes.Clone(b), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, errOpen
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, errOpen
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, errOpen
		}
	}
	return b[:len(b)-n], nil
}
