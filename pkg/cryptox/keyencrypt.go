package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// MasterKeyEnv is read when no master key file is configured.
const MasterKeyEnv = "AUTH_MASTER_KEY"

var (
	masterMu   sync.Mutex
	masterKey  []byte
	masterPath string
)

// SetMasterKeyPath sets the file holding the master key used to encrypt
// persisted signing keys. It clears any key already loaded.
func SetMasterKeyPath(path string) {
	masterMu.Lock()
	defer masterMu.Unlock()

	masterPath = path
	masterKey = nil
}

// loadMasterKey derives the AES-256 key from the master key file, then the
// AUTH_MASTER_KEY variable. Without either a random key is used, which means
// persisted signing keys cannot be read after a restart.
func loadMasterKey() ([]byte, error) {
	masterMu.Lock()
	defer masterMu.Unlock()

	if masterKey != nil {
		return masterKey, nil
	}

	var material []byte
	switch {
	case masterPath != "":
		data, err := os.ReadFile(masterPath)
		if err != nil {
			return nil, fmt.Errorf("cryptox: read master key: %w", err)
		}
		material = data
	case os.Getenv(MasterKeyEnv) != "":
		material = []byte(os.Getenv(MasterKeyEnv))
	default:
		material = make([]byte, 32)
		if _, err := rand.Read(material); err != nil {
			return nil, fmt.Errorf("cryptox: generate master key: %w", err)
		}
	}

	sum := sha256.Sum256(material)
	masterKey = sum[:]
	return masterKey, nil
}

func masterAEAD() (cipher.AEAD, error) {
	key, err := loadMasterKey()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: aes: %w", err)
	}
	return cipher.NewGCM(block)
}

// EncryptPrivateKey seals PEM key material with AES-256-GCM under the master
// key. Output is nonce || ciphertext || tag.
func EncryptPrivateKey(pemData []byte) ([]byte, error) {
	aead, err := masterAEAD()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("cryptox: nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, pemData, nil), nil
}

// DecryptPrivateKey opens data sealed by EncryptPrivateKey.
func DecryptPrivateKey(sealed []byte) ([]byte, error) {
	aead, err := masterAEAD()
	if err != nil {
		return nil, err
	}

	n := aead.NonceSize()
	if len(sealed) < n {
		return nil, errors.New("cryptox: ciphertext too short")
	}

	plain, err := aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("cryptox: decrypt: %w", err)
	}
	return plain, nil
}
