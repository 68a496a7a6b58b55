package filestore

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jrsteele09/go-console-session/credentials"
	apperrors "github.com/jrsteele09/go-console-session/internal/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

const credentialsFile = "credentials.json"

var _ credentials.Store = (*FileStore)(nil)

type fileEntry struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FileStore implements credentials.Store using a single JSON file.
// When an encryption key is configured the file is sealed with XChaCha20-Poly1305.
type FileStore struct {
	path  string
	aead  cipher.AEAD
	clock clock.Clock
	mu    sync.Mutex
}

type Option func(*FileStore) error

// WithEncryptionKey seals the file at rest. The key must be 32 bytes.
func WithEncryptionKey(key []byte) Option {
	return func(s *FileStore) error {
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return fmt.Errorf("[filestore] invalid encryption key: %w", err)
		}
		s.aead = aead
		return nil
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *FileStore) error {
		s.clock = c
		return nil
	}
}

// ParseKey decodes a hex encoded encryption key; empty input means no key
func ParseKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("[filestore] credential key is not hex: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("[filestore] credential key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return key, nil
}

// New creates a FileStore inside dir, creating the directory with 0700.
func New(dir string, opts ...Option) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credential directory: %w", err)
	}
	s := &FileStore{
		path:  filepath.Join(dir, credentialsFile),
		clock: clock.New(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Path is the file backing the store
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return "", err
	}
	e, ok := entries[key]
	if !ok || s.expired(e) {
		return "", apperrors.ErrNotFound
	}
	return e.Value, nil
}

func (s *FileStore) Set(key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return err
	}
	e := fileEntry{Value: value}
	if ttl > 0 {
		e.ExpiresAt = s.clock.Now().Add(ttl).UTC()
	}
	entries[key] = e
	return s.write(entries)
}

func (s *FileStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(entries, k)
	}
	if len(entries) == 0 {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove credentials file: %w", err)
		}
		return nil
	}
	return s.write(entries)
}

func (s *FileStore) expired(e fileEntry) bool {
	return !e.ExpiresAt.IsZero() && !s.clock.Now().Before(e.ExpiresAt)
}

func (s *FileStore) read() (map[string]fileEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]fileEntry), nil
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	if s.aead != nil {
		data, err = s.open(data)
		if err != nil {
			return nil, err
		}
	}

	entries := make(map[string]fileEntry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	return entries, nil
}

// write replaces the file atomically (temp file + rename)
func (s *FileStore) write(entries map[string]fileEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if s.aead != nil {
		if data, err = s.seal(data); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), credentialsFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp credentials file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set credentials file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close credentials file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}
	return nil
}

func (s *FileStore) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *FileStore) open(sealed []byte) ([]byte, error) {
	if len(sealed) < s.aead.NonceSize() {
		return nil, fmt.Errorf("credentials file is too short to be sealed")
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials file: %w", err)
	}
	return plaintext, nil
}
