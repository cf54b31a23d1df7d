package credential

import (
	"context"

	"github.com/sagarc03/davgate"
)

// StaticStore serves a credential fixed at construction.
type StaticStore struct {
	cred       davgate.Credential
	publicRead bool
}

// NewStaticStore creates a store around cred.
func NewStaticStore(cred davgate.Credential, publicRead bool) *StaticStore {
	return &StaticStore{cred: cred, publicRead: publicRead}
}

// Credential returns the pair and whether both halves are non-empty.
func (s *StaticStore) Credential(_ context.Context) (davgate.Credential, bool) {
	return s.cred, s.cred.IsSet()
}

// PublicRead reports whether read verbs skip authentication.
func (s *StaticStore) PublicRead() bool {
	return s.publicRead
}
