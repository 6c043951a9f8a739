// Package imagelist turns the encrypted imgsrcs payload of a chapter page
// into its ordered list of image URLs.
package imagelist

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"strings"
	"unicode"

	"github.com/ytget/mangadl/errs"
	"github.com/ytget/mangadl/types"
)

// Decrypt decodes the Base64 payload and decrypts it with AES-CBC using km.
//
// The plaintext is padded with NUL bytes, which are stripped. When the
// plaintext does not end in NUL and carries a well-formed PKCS#7 tail, that
// padding is removed instead. Invalid UTF-8 is replaced with U+FFFD.
func Decrypt(payloadBase64 string, km types.KeyMaterial) (string, error) {
	data, err := base64.StdEncoding.DecodeString(stripSpace(payloadBase64))
	if err != nil {
		return "", errs.Wrap(err, errs.CodeDecryptionFailed, "malformed base64 payload")
	}
	if err := checkKeyMaterial(km); err != nil {
		return "", err
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", errs.New(errs.CodeDecryptionFailed, "payload is not a whole number of cipher blocks", len(data))
	}

	block, err := aes.NewCipher(km.CipherKey)
	if err != nil {
		return "", errs.Wrap(err, errs.CodeDecryptionFailed, "cipher init")
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, km.IV).CryptBlocks(out, data)

	return strings.ToValidUTF8(string(trimPadding(out)), "\uFFFD"), nil
}

// Encrypt is the inverse of Decrypt: plaintext is NUL-padded to the block
// size, encrypted with AES-CBC and Base64 encoded.
func Encrypt(plaintext string, km types.KeyMaterial) (string, error) {
	if err := checkKeyMaterial(km); err != nil {
		return "", err
	}
	block, err := aes.NewCipher(km.CipherKey)
	if err != nil {
		return "", errs.Wrap(err, errs.CodeDecryptionFailed, "cipher init")
	}

	data := []byte(plaintext)
	if rem := len(data) % aes.BlockSize; rem != 0 || len(data) == 0 {
		data = append(data, make([]byte, aes.BlockSize-rem)...)
	}
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, km.IV).CryptBlocks(out, data)
	return base64.StdEncoding.EncodeToString(out), nil
}

func checkKeyMaterial(km types.KeyMaterial) error {
	switch len(km.CipherKey) {
	case 16, 24, 32:
	default:
		return errs.New(errs.CodeDecryptionFailed, "invalid AES key length", len(km.CipherKey))
	}
	if len(km.IV) != aes.BlockSize {
		return errs.New(errs.CodeDecryptionFailed, "invalid IV length", len(km.IV))
	}
	return nil
}

func trimPadding(b []byte) []byte {
	if trimmed := bytes.TrimRight(b, "\x00"); len(trimmed) < len(b) {
		return trimmed
	}
	n := len(b)
	p := int(b[n-1])
	if p < 1 || p > aes.BlockSize || p > n {
		return b
	}
	for _, c := range b[n-p:] {
		if int(c) != p {
			return b
		}
	}
	return b[:n-p]
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
