package clientcli

import (
	"time"
)

// UploadOptions configures an upload operation.
type UploadOptions struct {
	LocalPath   string
	RemotePath  string
	ContentType string // optional, auto-detect if empty
	Recursive   bool
}

// UploadResult represents the result of uploading a single file.
type UploadResult struct {
	LocalPath   string `json:"local_path"`
	RemotePath  string `json:"remote_path"`
	ContentType string `json:"content_type"`
	ETag        string `json:"etag"`
	Size        int64  `json:"size_bytes"`
	Created     bool   `json:"created"` // false when an existing object was replaced
	Err         error  `json:"-"`       // nil on success
}

// DownloadOptions configures a download operation.
type DownloadOptions struct {
	RemotePath string
	LocalPath  string // empty = derive from remote, "-" = stdout
}

// DownloadResult represents the result of downloading a file.
type DownloadResult struct {
	RemotePath  string `json:"remote_path"`
	LocalPath   string `json:"local_path"`
	ETag        string `json:"etag"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size_bytes"`
}

// DeleteOptions configures a delete operation.
type DeleteOptions struct {
	Paths []string
}

// DeleteResult represents the result of deleting a single resource.
type DeleteResult struct {
	Path    string `json:"path"`
	Deleted bool   `json:"deleted"`
	Err     error  `json:"-"` // nil on success
}

// ListOptions configures a list operation.
type ListOptions struct {
	// Path is the collection to list, starting with the bucket name.
	Path string
}

// ListResult holds the immediate children of a collection.
type ListResult struct {
	Path  string       `json:"path"`
	Items []ObjectInfo `json:"items"`
}

// ObjectInfo describes one resource as reported by PROPFIND.
type ObjectInfo struct {
	Path         string    `json:"path"`
	Name         string    `json:"name"`
	IsCollection bool      `json:"is_collection"`
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	Size         int64     `json:"size_bytes"`
	UpdatedAt    time.Time `json:"updated_at,omitzero"`
}

// MkdirResult represents the result of creating one collection.
type MkdirResult struct {
	Path    string `json:"path"`
	Created bool   `json:"created"`
	Err     error  `json:"-"` // nil on success
}

// TransferOptions configures a copy or move.
type TransferOptions struct {
	Source      string
	Destination string
	// Overwrite replaces an existing destination. When false the server
	// answers 412 if the destination exists.
	Overwrite bool
	// Shallow copies only the collection itself, not its members. Ignored for moves.
	Shallow bool
}

// TransferResult represents the result of a copy or move.
type TransferResult struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Moved       bool   `json:"moved"`
	Created     bool   `json:"created"` // false when an existing destination was replaced
}
