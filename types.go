package davgate

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

// ObjectInfo describes a single key in an object store.
// Keys ending in "/" are collection markers.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// IsMarker reports whether the object is a collection marker.
func (o ObjectInfo) IsMarker() bool {
	return strings.HasSuffix(o.Key, "/")
}

// ResourceEntry is a WebDAV resource or collection as reported by PROPFIND.
type ResourceEntry struct {
	Path         string    `json:"path"`
	IsCollection bool      `json:"is_collection"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	ContentType  string    `json:"content_type"`
	ETag         string    `json:"etag,omitempty"`
}

// Name returns the last path segment of the entry, or "" for the bucket root.
func (e ResourceEntry) Name() string {
	if e.Path == "" {
		return ""
	}
	return path.Base(e.Path)
}

// CollectionContentType is stored on collection markers.
const CollectionContentType = "httpd/unix-directory"

// DefaultContentType is used when neither the client nor sniffing yields a type.
const DefaultContentType = "application/octet-stream"

// Depth is the value of the WebDAV Depth header.
type Depth int

const (
	DepthZero Depth = iota
	DepthOne
	DepthInfinity
)

// ParseDepth parses a Depth header value. An empty value means infinity.
func ParseDepth(s string) (Depth, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0":
		return DepthZero, true
	case "1":
		return DepthOne, true
	case "", "infinity":
		return DepthInfinity, true
	default:
		return DepthInfinity, false
	}
}

// Credential is the single username/password pair guarding the gateway.
type Credential struct {
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	// PasswordBcrypt is a bcrypt hash that replaces Password when set.
	PasswordBcrypt string `json:"password_bcrypt,omitempty" mapstructure:"password_bcrypt"`
}

// IsSet reports whether a username and a password or hash are configured.
func (c Credential) IsSet() bool {
	return c.Username != "" && (c.Password != "" || c.PasswordBcrypt != "")
}

// AttemptRecord tracks failed logins for one (identity, username) pair.
type AttemptRecord struct {
	FailureCount int        `json:"failure_count"`
	BannedUntil  *time.Time `json:"banned_until,omitempty"`
}

// IsBanned reports whether the record carries a ban still in force at now.
func (r AttemptRecord) IsBanned(now time.Time) bool {
	return r.BannedUntil != nil && r.BannedUntil.After(now)
}

// AuthDecision is the outcome of authenticating one request.
type AuthDecision int

const (
	Allowed AuthDecision = iota
	DeniedUnauthorized
	DeniedBanned
	DeniedDisabled
)

func (d AuthDecision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case DeniedUnauthorized:
		return "unauthorized"
	case DeniedBanned:
		return "banned"
	case DeniedDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// AuthResult carries the decision plus what the transport needs to answer a denial.
type AuthResult struct {
	Decision AuthDecision
	// Username is the attempted username, "unknown" when it could not be decoded.
	Username string
	// BannedUntil is set when Decision is DeniedBanned.
	BannedUntil time.Time
	// RetryAfter is the ban time left, measured on the ledger clock.
	RetryAfter time.Duration
}

// Err maps the decision onto the error taxonomy. It returns nil when allowed.
func (r AuthResult) Err() error {
	switch r.Decision {
	case Allowed:
		return nil
	case DeniedBanned:
		return ErrAuthBanned
	case DeniedDisabled:
		return ErrAuthDisabled
	default:
		return ErrAuthInvalid
	}
}

// Tables holds configurable table names for the SQL ledger backends.
// This allows several gateways to share one database.
type Tables struct {
	Attempts string `mapstructure:"attempts"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Attempts == "" {
		return errors.New("validate tables: attempts table name cannot be empty")
	}

	if !IsValidTableName(t.Attempts) {
		return fmt.Errorf("validate tables: invalid attempts table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Attempts)
	}

	return nil
}
