package davgate

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// AuthRequest is the part of an HTTP request the Guard looks at.
type AuthRequest struct {
	Method        string
	Authorization string
	// Identity is the client identity from an IdentityPolicy.
	Identity string
}

// Guard decides whether a request may proceed, using the AttemptLedger to
// lock out identities that keep failing.
type Guard struct {
	creds   CredentialStore
	ledger  *AttemptLedger
	logger  *slog.Logger
	compare func(a, b []byte) bool
}

// NewGuard creates a Guard. A nil logger falls back to slog.Default.
func NewGuard(creds CredentialStore, ledger *AttemptLedger, logger *slog.Logger) (*Guard, error) {
	if creds == nil {
		return nil, fmt.Errorf("new guard: %w: credential store cannot be nil", ErrInvalidInput)
	}
	if ledger == nil {
		return nil, fmt.Errorf("new guard: %w: ledger cannot be nil", ErrInvalidInput)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Guard{
		creds:   creds,
		ledger:  ledger,
		logger:  logger,
		compare: ConstantTimeEqual,
	}, nil
}

// IsReadMethod reports whether method qualifies for the public-read exemption.
func IsReadMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, "PROPFIND":
		return true
	default:
		return false
	}
}

func (g *Guard) banned(username string, until, now time.Time) AuthResult {
	return AuthResult{
		Decision:    DeniedBanned,
		Username:    username,
		BannedUntil: until,
		RetryAfter:  until.Sub(now),
	}
}

// Authenticate returns exactly one decision for req.
//
// A non-nil error means the ledger could not be read or written; callers
// must deny the request.
func (g *Guard) Authenticate(ctx context.Context, req AuthRequest) (AuthResult, error) {
	if g.creds.PublicRead() && IsReadMethod(req.Method) {
		return AuthResult{Decision: Allowed}, nil
	}

	want, ok := g.creds.Credential(ctx)
	if !ok {
		return AuthResult{Decision: DeniedDisabled}, nil
	}

	encoded, ok := basicPayload(req.Authorization)
	if !ok {
		return AuthResult{Decision: DeniedUnauthorized}, nil
	}

	supplied, username, decoded := decodeBasic(encoded)

	rec, err := g.ledger.Lookup(ctx, req.Identity, username)
	if err != nil {
		return AuthResult{}, fmt.Errorf("authenticate: %w", err)
	}

	now := g.ledger.Now()
	if rec.IsBanned(now) {
		return g.banned(username, *rec.BannedUntil, now), nil
	}

	if decoded && g.matches(supplied, want) {
		if rec.FailureCount > 0 || rec.BannedUntil != nil {
			if err := g.ledger.Clear(ctx, req.Identity, username); err != nil {
				return AuthResult{}, fmt.Errorf("authenticate: %w", err)
			}
		}
		g.logger.Debug("authentication succeeded", "identity", req.Identity, "username", username)
		return AuthResult{Decision: Allowed, Username: username}, nil
	}

	rec, err = g.ledger.RecordFailure(ctx, req.Identity, username, rec)
	if err != nil {
		return AuthResult{}, fmt.Errorf("authenticate: %w", err)
	}

	if rec.BannedUntil != nil {
		g.logger.Warn("identity banned after repeated failures",
			"identity", req.Identity,
			"username", username,
			"failures", rec.FailureCount,
			"banned_until", *rec.BannedUntil,
		)
		return g.banned(username, *rec.BannedUntil, g.ledger.Now()), nil
	}

	g.logger.Info("authentication failed",
		"identity", req.Identity,
		"username", username,
		"failures", rec.FailureCount,
	)
	return AuthResult{Decision: DeniedUnauthorized, Username: username}, nil
}

// matches checks the decoded "user:pass" bytes against want. With a bcrypt
// hash configured the username is compared in constant time and the password
// checked against the hash; both checks always run.
func (g *Guard) matches(supplied []byte, want Credential) bool {
	if want.PasswordBcrypt == "" {
		return g.compare(supplied, []byte(want.Username+":"+want.Password))
	}

	user, pass, _ := bytes.Cut(supplied, []byte(":"))
	userOK := g.compare(user, []byte(want.Username))
	passOK := bcrypt.CompareHashAndPassword([]byte(want.PasswordBcrypt), pass) == nil
	return userOK && passOK
}

// basicPayload extracts the base64 part of a Basic Authorization header.
func basicPayload(header string) (string, bool) {
	scheme, payload, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Basic") {
		return "", false
	}
	return strings.TrimSpace(payload), true
}

// decodeBasic decodes a Basic payload into the raw "user:pass" bytes and the
// username. decoded is false when the payload is not valid base64 or has no
// colon, in which case the username is UnknownUsername.
func decodeBasic(payload string) (raw []byte, username string, decoded bool) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, UnknownUsername, false
	}

	user, _, found := strings.Cut(string(raw), ":")
	if !found {
		return nil, UnknownUsername, false
	}
	if user == "" {
		user = UnknownUsername
	}

	return raw, user, true
}
