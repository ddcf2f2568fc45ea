package widevine

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Signer authenticates key requests with the AES key and IV the key server
// provisioned for a signer name.
type Signer struct {
	block  cipher.Block
	iv     []byte
	logger *zap.Logger
}

// NewSigner decodes the hex key and IV. Keys must decode to 16, 24 or 32
// bytes and the IV to one AES block; anything else is a *CryptoError.
func NewSigner(key, iv string, logger *zap.Logger) (*Signer, error) {
	rawKey, err := hex.DecodeString(key)

	if err != nil {
		return nil, &CryptoError{Op: "decode key", Err: err}
	}

	rawIV, err := hex.DecodeString(iv)

	if err != nil {
		return nil, &CryptoError{Op: "decode iv", Err: err}
	}

	block, err := aes.NewCipher(rawKey)

	if err != nil {
		return nil, &CryptoError{Op: "init cipher", Err: err}
	}

	if len(rawIV) != aes.BlockSize {
		return nil, &CryptoError{Op: "init cipher", Err: errors.Errorf("invalid iv size %d", len(rawIV))}
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Signer{
		block:  block,
		iv:     rawIV,
		logger: logger,
	}, nil
}

// Sign encrypts the SHA-1 digest of payload and returns it base64 encoded.
func (s *Signer) Sign(payload []byte) string {
	digest := sha1.Sum(payload)
	s.logger.Debug("hashed request", zap.String("sha1", hex.EncodeToString(digest[:])))

	plaintext := pkcs7Pad(digest[:], aes.BlockSize)
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(s.block, s.iv).CryptBlocks(ciphertext, plaintext)

	signature := base64.StdEncoding.EncodeToString(ciphertext)
	s.logger.Debug("signed request", zap.String("signature", signature))

	return signature
}

// Sign is a one-shot helper around NewSigner and Signer.Sign.
func Sign(payload []byte, key, iv string) (string, error) {
	signer, err := NewSigner(key, iv, nil)

	if err != nil {
		return "", err
	}

	return signer.Sign(payload), nil
}

// SignRequest signs the canonical JSON text of req.
func SignRequest(req *KeyRequest, key, iv string) (string, error) {
	payload, err := req.Payload()

	if err != nil {
		return "", err
	}

	return Sign(payload, key, iv)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - (len(data) % blockSize)
	padtext := bytes.Repeat([]byte{byte(padding)}, padding)
	return append(append([]byte{}, data...), padtext...)
}
