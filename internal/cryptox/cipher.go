// Package cryptox implements the symmetric payload cipher embedded in
// issued tokens: AES-256-CBC with PKCS#7 padding under a normalised key.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"unicode/utf8"
)

const (
	// KeySize is the normalised key length (AES-256).
	KeySize = 32
	// IVSize is the CBC initialisation vector length.
	IVSize = aes.BlockSize
)

// ErrDecrypt is returned when the ciphertext was not produced under the
// supplied key or is not a whole number of blocks.
var ErrDecrypt = errors.New("cryptox: decryption failed")

// WARNING: the IV is fixed and all-zero, so equal plaintexts under equal keys
// produce equal ciphertexts. Existing tokens depend on this exact output;
// switching to a random IV is a wire-format change, not a bug fix.
var zeroIV = make([]byte, IVSize)

// NormalizeKey copies the UTF-8 bytes of key left-to-right into a zeroed
// 32-byte buffer. Bytes beyond 32 are dropped, and a multi-byte character
// that does not fit whole is dropped too. Keys that agree on their first 32
// bytes therefore normalise to the same buffer.
func NormalizeKey(key string) [KeySize]byte {
	var buf [KeySize]byte
	n := 0
	for _, r := range key {
		size := utf8.RuneLen(r)
		if size < 0 {
			size = utf8.RuneLen(utf8.RuneError)
			r = utf8.RuneError
		}
		if n+size > KeySize {
			break
		}
		n += utf8.EncodeRune(buf[n:], r)
	}
	return buf
}

// Encrypt returns the AES-256-CBC ciphertext of plaintext under key.
// The output is deterministic for a given (plaintext, key).
func Encrypt(plaintext []byte, key string) ([]byte, error) {
	k := NormalizeKey(key)
	block, err := aes.NewCipher(k[:])
	if err != nil {
		return nil, err
	}
	padded := pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, zeroIV).CryptBlocks(out, padded)
	return out, nil
}

// Decrypt reverses Encrypt. A wrong key shows up as invalid padding and is
// reported as ErrDecrypt.
func Decrypt(ciphertext []byte, key string) ([]byte, error) {
	k := NormalizeKey(key)
	block, err := aes.NewCipher(k[:])
	if err != nil {
		return nil, err
	}
	bs := block.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return nil, ErrDecrypt
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, zeroIV).CryptBlocks(out, ciphertext)
	return unpad(out, bs)
}

// Cipher binds the package functions to a process default key, used
// whenever a caller does not name a key of its own. An empty key string
// counts as not naming one: it selects the default key, not an all-zero
// key buffer. Encrypt(p, "") still gives the all-zero buffer.
type Cipher struct {
	defaultKey string
}

// New returns a Cipher falling back to defaultKey.
func New(defaultKey string) Cipher {
	return Cipher{defaultKey: defaultKey}
}

// HasDefault reports whether a non-empty default key is configured.
func (c Cipher) HasDefault() bool {
	return c.defaultKey != ""
}

// Encrypt encrypts under the default key.
func (c Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	return Encrypt(plaintext, c.defaultKey)
}

// Decrypt decrypts under the default key.
func (c Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	return Decrypt(ciphertext, c.defaultKey)
}

// EncryptWithKey encrypts under key, or under the default key when key is empty.
func (c Cipher) EncryptWithKey(plaintext []byte, key string) ([]byte, error) {
	return Encrypt(plaintext, c.pick(key))
}

// DecryptWithKey decrypts under key, or under the default key when key is empty.
func (c Cipher) DecryptWithKey(ciphertext []byte, key string) ([]byte, error) {
	return Decrypt(ciphertext, c.pick(key))
}

func (c Cipher) pick(key string) string {
	if key == "" {
		return c.defaultKey
	}
	return key
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrDecrypt
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrDecrypt
		}
	}
	return data[:len(data)-n], nil
}
