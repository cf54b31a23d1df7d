package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/sagarc03/davgate"
)

// LoadCredentialFromFile loads the credential from a JSON file of the form:
//
//	{"username": "alice", "password": "s3cret"}
//
// "password_bcrypt" may hold a bcrypt hash in place of "password".
func LoadCredentialFromFile(path string) (davgate.Credential, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted config file
	if err != nil {
		return davgate.Credential{}, fmt.Errorf("read credentials file: %w", err)
	}

	var cred davgate.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return davgate.Credential{}, fmt.Errorf("parse credentials file: %w", err)
	}

	return cred, nil
}

// FileStore reads the credential from a JSON file, caching it until the
// file's modification time or size changes.
type FileStore struct {
	path       string
	publicRead bool
	logger     *slog.Logger

	mu      sync.Mutex
	modTime time.Time
	size    int64
	cred    davgate.Credential
	loaded  bool
	failing bool
}

// NewFileStore creates a store reading path. Nothing is read until first use.
func NewFileStore(path string, publicRead bool, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, publicRead: publicRead, logger: logger}
}

// Credential returns the current file contents. A missing or malformed file
// reports no credential, which disables authentication.
func (s *FileStore) Credential(ctx context.Context) (davgate.Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		s.forget(ctx, err)
		return davgate.Credential{}, false
	}

	if s.loaded && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return s.cred, s.cred.IsSet()
	}

	cred, err := LoadCredentialFromFile(s.path)
	if err != nil {
		s.forget(ctx, err)
		return davgate.Credential{}, false
	}

	s.cred = cred
	s.modTime = info.ModTime()
	s.size = info.Size()
	s.loaded = true
	s.failing = false
	s.logger.DebugContext(ctx, "credentials loaded", "path", s.path)

	return cred, cred.IsSet()
}

func (s *FileStore) forget(ctx context.Context, err error) {
	// warn once per outage rather than on every request
	if !s.failing {
		s.logger.WarnContext(ctx, "credentials unavailable", "path", s.path, "error", err)
	}
	s.failing = true
	s.cred = davgate.Credential{}
	s.modTime = time.Time{}
	s.size = 0
	s.loaded = false
}

// PublicRead reports whether read verbs skip authentication.
func (s *FileStore) PublicRead() bool {
	return s.publicRead
}
