package davgate

import "errors"

var (
	// ErrNotFound is returned when an object or collection does not exist
	ErrNotFound = errors.New("not found")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrAuthDisabled is returned when no credential is configured
	ErrAuthDisabled = errors.New("webdav protocol is not enabled")
	// ErrAuthMissing is returned when the request carries no basic credentials
	ErrAuthMissing = errors.New("authorization required")
	// ErrAuthInvalid is returned when the supplied credentials are wrong or malformed
	ErrAuthInvalid = errors.New("invalid credentials")
	// ErrAuthBanned is returned while an identity is locked out
	ErrAuthBanned = errors.New("too many login attempts")

	// ErrBucketUnresolved is returned when the first path segment names no bucket
	ErrBucketUnresolved = errors.New("bucket not found")
	// ErrCollectionConflict is returned when a required parent collection is missing
	ErrCollectionConflict = errors.New("parent collection does not exist")
	// ErrAlreadyExists is returned when MKCOL targets an existing resource
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrOverwriteDenied is returned when Overwrite: F meets an existing destination
	ErrOverwriteDenied = errors.New("destination exists and overwrite is disabled")
	// ErrPreconditionFailed is returned when a conditional header does not hold
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrMethodNotAllowed is returned when a verb cannot apply to the target
	ErrMethodNotAllowed = errors.New("method not allowed")
	// ErrStoreUnavailable is returned when a backing store fails
	ErrStoreUnavailable = errors.New("store unavailable")
)
