// Package credentials stores summarization provider API keys in
// ~/.minutes/credentials.yaml, encrypted at rest with AES-GCM.
//
// The encryption key comes from, in order:
//   - MINUTES_ENCRYPTION_KEY, a 64-character hex string (32 bytes)
//   - MINUTES_PASSPHRASE, stretched with Argon2id and a stored salt
//   - the system keyring (macOS Keychain, Windows Credential Manager,
//     Linux Secret Service)
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Credential storage constants.
const (
	DefaultCredentialsDir  = ".minutes"
	DefaultCredentialsFile = "credentials.yaml"
	saltFile               = "credentials.salt"
)

// Common errors.
var (
	// ErrNoCredentials is returned when no key is stored for a provider.
	ErrNoCredentials = errors.New("no credentials stored")
	// ErrEncryptionFailed is returned when encryption/decryption fails.
	ErrEncryptionFailed = errors.New("encryption failed")
)

// ProviderKey is one stored provider key.
type ProviderKey struct {
	// APIKey is encrypted in the file and plaintext in memory.
	APIKey    string    `yaml:"api_key"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

type credentialsFile struct {
	Providers map[string]ProviderKey `yaml:"providers"`
}

// Status describes a stored key without revealing it.
type Status struct {
	Provider  string    `json:"provider" yaml:"provider"`
	Masked    string    `json:"masked" yaml:"masked"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Store manages credential storage operations.
type Store struct {
	credentialsDir string
	encryptionKey  []byte
	keyProvider    KeyProvider
}

// NewStore creates a credential store using the default key provider.
func NewStore() (*Store, error) {
	dir, err := CredentialsDir()
	if err != nil {
		return nil, fmt.Errorf("getting credentials directory: %w", err)
	}

	keyProvider, err := GetDefaultKeyProvider(dir)
	if err != nil {
		return nil, fmt.Errorf("initializing key provider: %w", err)
	}
	return newStore(dir, keyProvider)
}

// NewStoreWithKeyProvider creates a credential store with a custom key provider.
func NewStoreWithKeyProvider(keyProvider KeyProvider) (*Store, error) {
	dir, err := CredentialsDir()
	if err != nil {
		return nil, fmt.Errorf("getting credentials directory: %w", err)
	}
	return newStore(dir, keyProvider)
}

func newStore(dir string, keyProvider KeyProvider) (*Store, error) {
	key, err := keyProvider.GetKey()
	if err != nil {
		return nil, fmt.Errorf("getting encryption key: %w", err)
	}
	return &Store{
		credentialsDir: dir,
		encryptionKey:  key,
		keyProvider:    keyProvider,
	}, nil
}

// CredentialsDir returns the credentials directory path.
// Uses $MINUTES_CONFIG_DIR if set, otherwise ~/.minutes
func CredentialsDir() (string, error) {
	if dir := os.Getenv("MINUTES_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultCredentialsDir), nil
}

// CredentialsPath returns the full path to the credentials file.
func CredentialsPath() (string, error) {
	dir, err := CredentialsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultCredentialsFile), nil
}

// KeyDescription describes where the encryption key lives.
func (s *Store) KeyDescription() string {
	return s.keyProvider.Description()
}

// Set stores apiKey for provider, replacing any existing key.
func (s *Store) Set(provider, apiKey string) error {
	provider = normalize(provider)
	if provider == "" {
		return errors.New("provider is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return errors.New("API key is required")
	}

	file, err := s.readFile()
	if err != nil {
		return err
	}

	encrypted, err := s.encrypt(strings.TrimSpace(apiKey))
	if err != nil {
		return fmt.Errorf("encrypting API key: %w", err)
	}
	file.Providers[provider] = ProviderKey{APIKey: encrypted, UpdatedAt: time.Now().UTC()}

	return s.writeFile(file)
}

// Get returns the decrypted key for provider, or ErrNoCredentials.
func (s *Store) Get(provider string) (string, error) {
	file, err := s.readFile()
	if err != nil {
		return "", err
	}

	entry, ok := file.Providers[normalize(provider)]
	if !ok || entry.APIKey == "" {
		return "", ErrNoCredentials
	}

	key, err := s.decrypt(entry.APIKey)
	if err != nil {
		return "", fmt.Errorf("decrypting API key: %w", err)
	}
	return key, nil
}

// Delete removes the key for provider. Removing a missing key is not an error.
func (s *Store) Delete(provider string) error {
	file, err := s.readFile()
	if err != nil {
		return err
	}

	provider = normalize(provider)
	if _, ok := file.Providers[provider]; !ok {
		return nil
	}
	delete(file.Providers, provider)

	if len(file.Providers) == 0 {
		if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing credentials file: %w", err)
		}
		return nil
	}
	return s.writeFile(file)
}

// List returns the status of every stored key, sorted by provider.
func (s *Store) List() ([]Status, error) {
	file, err := s.readFile()
	if err != nil {
		return nil, err
	}

	statuses := make([]Status, 0, len(file.Providers))
	for name, entry := range file.Providers {
		masked := "(unreadable)"
		if key, err := s.decrypt(entry.APIKey); err == nil {
			masked = MaskAPIKey(key)
		}
		statuses = append(statuses, Status{Provider: name, Masked: masked, UpdatedAt: entry.UpdatedAt})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Provider < statuses[j].Provider })
	return statuses, nil
}

// Exists checks if the credentials file exists.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path())
	return err == nil
}

func (s *Store) path() string {
	return filepath.Join(s.credentialsDir, DefaultCredentialsFile)
}

func (s *Store) readFile() (*credentialsFile, error) {
	file := &credentialsFile{Providers: map[string]ProviderKey{}}

	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return file, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	if err := yaml.Unmarshal(data, file); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	if file.Providers == nil {
		file.Providers = map[string]ProviderKey{}
	}
	return file, nil
}

func (s *Store) writeFile(file *credentialsFile) error {
	if err := os.MkdirAll(s.credentialsDir, 0700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	if err := os.WriteFile(s.path(), data, 0600); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}
	return nil
}

// encrypt encrypts a string using AES-GCM. The nonce is prepended to the
// ciphertext.
func (s *Store) encrypt(plaintext string) (string, error) {
	gcm, err := newGCM(s.encryptionKey)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: generating nonce: %v", ErrEncryptionFailed, err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts an AES-GCM encrypted string.
func (s *Store) decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: decoding base64: %v", ErrEncryptionFailed, err)
	}

	gcm, err := newGCM(s.encryptionKey)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrEncryptionFailed)
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: decryption failed: %v", ErrEncryptionFailed, err)
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: creating cipher: %v", ErrEncryptionFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: creating GCM: %v", ErrEncryptionFailed, err)
	}
	return gcm, nil
}

func normalize(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

// MaskAPIKey returns a masked API key showing only a short prefix and
// suffix. Keys of 12 characters or fewer are fully masked.
func MaskAPIKey(apiKey string) string {
	if len(apiKey) <= 12 {
		return strings.Repeat("*", len(apiKey))
	}
	return apiKey[:4] + strings.Repeat("*", 8) + apiKey[len(apiKey)-4:]
}
