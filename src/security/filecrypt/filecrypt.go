// Package filecrypt handles password-protected uploads. Protected files are
// wrapped in a small envelope: a magic marker, a PBKDF2 salt, an AES-GCM
// nonce, then the ciphertext. A file without the marker passes through
// untouched.
package filecrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

var magic = []byte("BRENC1")

const (
	saltLen    = 16
	nonceLen   = 12
	keyLen     = 32
	pbkdf2Iter = 600000
)

// ErrNotDecryptable means the file is protected but none of the configured
// passwords opened it. Callers treat it the same as an unparseable file.
var ErrNotDecryptable = errors.New("file is password-protected and no configured password decrypts it")

// IsEncrypted reports whether the content carries the protection envelope.
func IsEncrypted(data []byte) bool {
	return bytes.HasPrefix(data, magic)
}

// Decrypt tries each password in order and returns the plaintext of the
// first that authenticates. Unprotected content is returned as-is.
func Decrypt(data []byte, passwords []string) ([]byte, error) {
	if !IsEncrypted(data) {
		return data, nil
	}
	body := data[len(magic):]
	if len(body) < saltLen+nonceLen+1 {
		return nil, fmt.Errorf("protected file envelope truncated: %d bytes after marker", len(body))
	}
	salt := body[:saltLen]
	nonce := body[saltLen : saltLen+nonceLen]
	ciphertext := body[saltLen+nonceLen:]

	for _, password := range passwords {
		gcm, err := aead(password, salt)
		if err != nil {
			return nil, err
		}
		plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
		if err == nil {
			return plaintext, nil
		}
	}
	return nil, ErrNotDecryptable
}

// Encrypt wraps content in the protection envelope. Used by tests and by
// operators preparing fixtures; the service itself only decrypts.
func Encrypt(data []byte, password string) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	gcm, err := aead(password, salt)
	if err != nil {
		return nil, err
	}
	out := append([]byte{}, magic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, data, nil), nil
}

func aead(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iter, keyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
