package state

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
)

// EncryptionKeyEnvVar names the environment variable holding the state
// encryption key. When unset, state is written in the clear.
const EncryptionKeyEnvVar = "STACKFORM_STATE_ENCRYPTION_KEY"

var encryptedHeader = []byte("# STACKFORM_ENCRYPTED_STATE\n")

// IsEncrypted reports whether state content carries the encryption header.
func IsEncrypted(content []byte) bool {
	return bytes.HasPrefix(content, encryptedHeader)
}

// EncryptState seals state content with AES-256-GCM under the environment
// key. Without a key the content passes through untouched, so both stores
// call it unconditionally on every write.
func EncryptState(content []byte) ([]byte, error) {
	gcm, err := stateAEAD()
	if err != nil {
		return nil, err
	}
	if gcm == nil {
		return content, nil
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, content, nil)

	var out bytes.Buffer
	out.Write(encryptedHeader)
	enc := base64.NewEncoder(base64.StdEncoding, &out)
	enc.Write(sealed)
	enc.Close()
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// DecryptState opens state content written by EncryptState. Unencrypted
// content passes through, which keeps pre-encryption state files readable
// after a key is introduced.
func DecryptState(content []byte) ([]byte, error) {
	if !IsEncrypted(content) {
		return content, nil
	}

	gcm, err := stateAEAD()
	if err != nil {
		return nil, err
	}
	if gcm == nil {
		return nil, fmt.Errorf("state file is encrypted but %s is not set", EncryptionKeyEnvVar)
	}

	body := bytes.TrimSpace(bytes.TrimPrefix(content, encryptedHeader))
	sealed, err := base64.StdEncoding.DecodeString(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to decode encrypted state: %w", err)
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, fmt.Errorf("encrypted state is truncated")
	}

	plaintext, err := gcm.Open(nil, sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt state (wrong key?): %w", err)
	}
	return plaintext, nil
}

// stateAEAD builds the AES-256-GCM cipher from the environment key, or
// returns nil when no key is configured. The key is padded or truncated to
// the 32 bytes AES-256 requires.
func stateAEAD() (cipher.AEAD, error) {
	keyStr := os.Getenv(EncryptionKeyEnvVar)
	if keyStr == "" {
		return nil, nil
	}

	key := make([]byte, 32)
	copy(key, keyStr)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise state cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
