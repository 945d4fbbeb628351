// Package secretbox provides authenticated encryption for credentials at
// rest. Tokens are sealed with AES-256-GCM and persisted as
// base64(iv).base64(tag).base64(ciphertext), so a stored value is useless
// without the process-wide master key.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

const (
	masterKeyEnvVar   = "TOKEN_ENCRYPTION_KEY"
	nonceSizeGCM      = 12 // recommended GCM nonce size (96 bits)
	tagSizeGCM        = 16
	requiredKeyLength = 32 // 32 bytes => AES-256
	sep               = "."
)

var (
	masterKey     []byte
	masterKeyOnce sync.Once
	loadErr       error
	mu            sync.RWMutex
)

// ensureLoaded loads the master key from TOKEN_ENCRYPTION_KEY (base64) once.
func ensureLoaded() error {
	masterKeyOnce.Do(func() {
		kb64 := strings.TrimSpace(os.Getenv(masterKeyEnvVar))
		if kb64 == "" {
			loadErr = fmt.Errorf("%s not set; generate one with: openssl rand -base64 32", masterKeyEnvVar)
			return
		}
		k, err := base64.StdEncoding.DecodeString(kb64)
		if err != nil {
			loadErr = fmt.Errorf("decode %s: %w", masterKeyEnvVar, err)
			return
		}
		if len(k) != requiredKeyLength {
			loadErr = fmt.Errorf("%s must decode to %d bytes, got %d", masterKeyEnvVar, requiredKeyLength, len(k))
			return
		}
		mu.Lock()
		masterKey = make([]byte, len(k))
		copy(masterKey, k)
		mu.Unlock()
	})
	return loadErr
}

// Ready reports whether the master key is loaded (for healthchecks).
func Ready() bool {
	mu.RLock()
	defer mu.RUnlock()
	return len(masterKey) == requiredKeyLength
}

func currentKey() []byte {
	mu.RLock()
	key := make([]byte, len(masterKey))
	copy(key, masterKey)
	mu.RUnlock()
	return key
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return aesgcm, nil
}

// Encrypt seals plainText and returns ivB64.tagB64.ciphertextB64.
func Encrypt(plainText string) (string, error) {
	if err := ensureLoaded(); err != nil {
		return "", err
	}

	aesgcm, err := newGCM(currentKey())
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSizeGCM)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce random: %w", err)
	}

	sealed := aesgcm.Seal(nil, nonce, []byte(plainText), nil)
	ct, tag := sealed[:len(sealed)-tagSizeGCM], sealed[len(sealed)-tagSizeGCM:]

	return base64.StdEncoding.EncodeToString(nonce) + sep +
		base64.StdEncoding.EncodeToString(tag) + sep +
		base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt takes ivB64.tagB64.ciphertextB64 and returns the plaintext.
// Any tampering with any of the three segments fails authentication.
func Decrypt(cipherText string) (string, error) {
	if err := ensureLoaded(); err != nil {
		return "", err
	}

	parts := strings.Split(cipherText, sep)
	if len(parts) != 3 {
		return "", errors.New("invalid format: expected ivB64.tagB64.ciphertextB64")
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("decode iv: %w", err)
	}
	tag, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decode tag: %w", err)
	}
	ct, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(nonce) != nonceSizeGCM {
		return "", fmt.Errorf("invalid iv: expected %d bytes, got %d", nonceSizeGCM, len(nonce))
	}
	if len(tag) != tagSizeGCM {
		return "", fmt.Errorf("invalid tag: expected %d bytes, got %d", tagSizeGCM, len(tag))
	}

	aesgcm, err := newGCM(currentKey())
	if err != nil {
		return "", err
	}

	pt, err := aesgcm.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("gcm auth/decrypt: %w", err)
	}
	return string(pt), nil
}

// --- Test helpers ---

// UnsafeResetForTests clears the internal state. Tests only.
func UnsafeResetForTests() {
	mu.Lock()
	masterKey = nil
	mu.Unlock()
	masterKeyOnce = sync.Once{}
	loadErr = nil
}

// UnsafeSetMasterKeyForTests installs a raw 32-byte key. Tests only.
func UnsafeSetMasterKeyForTests(k []byte) error {
	if len(k) != requiredKeyLength {
		return fmt.Errorf("invalid test key: %d bytes required", requiredKeyLength)
	}
	UnsafeResetForTests()
	masterKeyOnce.Do(func() {})
	mu.Lock()
	masterKey = make([]byte, len(k))
	copy(masterKey, k)
	mu.Unlock()
	return nil
}
