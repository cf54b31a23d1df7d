package clientcli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultTimeout is the default HTTP client timeout.
const DefaultTimeout = 30 * time.Second

// Client performs WebDAV operations against a davgate server.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	// Apply defaults
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config: &Config{
			Endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
			Username: cfg.Username,
			Password: cfg.Password,
		},
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	// Apply options
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// URL returns the absolute URL of remotePath with each segment escaped.
func (c *Client) URL(remotePath string, collection bool) string {
	remotePath = normalizePath(remotePath)

	segments := strings.Split(strings.TrimPrefix(remotePath, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	u := c.config.Endpoint + "/" + strings.Join(segments, "/")
	if collection && !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}

// newRequest builds an authenticated request for remotePath.
func (c *Client) newRequest(ctx context.Context, method, remotePath string, collection bool, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.URL(remotePath, collection), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.config.Username != "" || c.config.Password != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}
	return req, nil
}

// Upload uploads file(s) to the server.
// For recursive uploads, walks directory and preserves relative paths.
// The server creates missing parent collections.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) ([]UploadResult, error) {
	if opts.LocalPath == "" {
		return nil, fmt.Errorf("upload: %w", ErrEmptyPath)
	}
	if opts.Recursive {
		return c.uploadRecursive(ctx, opts)
	}
	result, err := c.uploadSingle(ctx, opts.LocalPath, opts.RemotePath, opts.ContentType)
	if err != nil {
		return nil, err
	}
	return []UploadResult{result}, nil
}

// uploadRecursive walks a directory and uploads all files.
func (c *Client) uploadRecursive(ctx context.Context, opts UploadOptions) ([]UploadResult, error) {
	info, err := os.Stat(opts.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("stat local path: %w", err)
	}

	if !info.IsDir() {
		// Not a directory, just upload single file
		result, uploadErr := c.uploadSingle(ctx, opts.LocalPath, opts.RemotePath, opts.ContentType)
		if uploadErr != nil {
			return nil, uploadErr
		}
		return []UploadResult{result}, nil
	}

	var results []UploadResult
	baseDir := opts.LocalPath
	remotePrefix := strings.TrimSuffix(opts.RemotePath, "/")

	walkErr := filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, fileErr error) error {
		if fileErr != nil {
			return fileErr
		}

		// Check context cancellation
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		// Skip directories
		if d.IsDir() {
			return nil
		}

		// Calculate relative path
		relPath, relErr := filepath.Rel(baseDir, path)
		if relErr != nil {
			results = append(results, UploadResult{
				LocalPath: path,
				Err:       fmt.Errorf("calculate relative path: %w", relErr),
			})
			return nil
		}

		// Convert to forward slashes for remote path
		remotePath := remotePrefix + "/" + filepath.ToSlash(relPath)

		result, uploadErr := c.uploadSingle(ctx, path, remotePath, "")
		if uploadErr != nil {
			result = UploadResult{
				LocalPath:  path,
				RemotePath: remotePath,
				Err:        uploadErr,
			}
		}
		results = append(results, result)
		return nil
	})

	if walkErr != nil {
		return results, fmt.Errorf("walk directory: %w", walkErr)
	}

	return results, nil
}

// uploadSingle uploads a single file with PUT.
func (c *Client) uploadSingle(ctx context.Context, localPath, remotePath, contentType string) (UploadResult, error) {
	if remotePath == "" {
		return UploadResult{}, fmt.Errorf("upload %s: %w", localPath, ErrEmptyPath)
	}

	// Open the file
	file, err := os.Open(localPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return UploadResult{}, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Get file info for size
	info, err := file.Stat()
	if err != nil {
		return UploadResult{}, fmt.Errorf("stat file: %w", err)
	}

	// Auto-detect content type if not provided
	if contentType == "" {
		contentType = detectContentType(localPath)
	}

	// Create request with file as body (streaming, no memory copy)
	req, err := c.newRequest(ctx, http.MethodPut, remotePath, false, file)
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = info.Size()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return UploadResult{}, readServerError(resp)
	}

	return UploadResult{
		LocalPath:   localPath,
		RemotePath:  strings.TrimPrefix(normalizePath(remotePath), "/"),
		ContentType: contentType,
		ETag:        strings.Trim(resp.Header.Get("ETag"), `"`),
		Size:        info.Size(),
		Created:     resp.StatusCode == http.StatusCreated,
	}, nil
}

// Download downloads a file from the server.
// If opts.LocalPath is "-", the content is returned via the io.ReadCloser and must be closed by the caller.
// Otherwise, the content is written to the file and the io.ReadCloser is nil.
func (c *Client) Download(ctx context.Context, opts DownloadOptions) (*DownloadResult, io.ReadCloser, error) {
	if opts.RemotePath == "" {
		return nil, nil, fmt.Errorf("download: %w", ErrEmptyPath)
	}
	remotePath := normalizePath(opts.RemotePath)

	req, err := c.newRequest(ctx, http.MethodGet, remotePath, false, http.NoBody)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return nil, nil, readServerError(resp)
	}

	result := &DownloadResult{
		RemotePath:  strings.TrimPrefix(remotePath, "/"),
		ETag:        strings.Trim(resp.Header.Get("ETag"), `"`),
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}

	// If stdout requested, return the body for the caller to handle
	if opts.LocalPath == "-" {
		result.LocalPath = "-"
		return result, resp.Body, nil
	}

	// Determine local path
	localPath := opts.LocalPath
	if localPath == "" {
		// Derive from remote path
		localPath = filepath.Base(remotePath)
	}
	result.LocalPath = localPath

	// Create parent directories if needed
	dir := filepath.Dir(localPath)
	if dir != "" && dir != "." {
		if mkdirErr := os.MkdirAll(dir, 0o750); mkdirErr != nil {
			_ = resp.Body.Close()
			return nil, nil, fmt.Errorf("create directory: %w", mkdirErr)
		}
	}

	// Create the file
	file, createErr := os.Create(localPath) //#nosec G304 -- localPath is user-provided input
	if createErr != nil {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("create file: %w", createErr)
	}

	// Copy content to file
	written, copyErr := io.Copy(file, resp.Body)
	_ = resp.Body.Close()
	if copyErr != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("write file: %w", copyErr)
	}

	if closeErr := file.Close(); closeErr != nil {
		return nil, nil, fmt.Errorf("close file: %w", closeErr)
	}

	result.Size = written
	return result, nil, nil
}

// Delete deletes one or more resources from the server. Deleting a
// collection removes everything below it.
// Continues on error, collecting results for all paths.
func (c *Client) Delete(ctx context.Context, opts DeleteOptions) ([]DeleteResult, error) {
	if len(opts.Paths) == 0 {
		return nil, ErrNoPaths
	}

	results := make([]DeleteResult, 0, len(opts.Paths))

	for _, path := range opts.Paths {
		// Check context cancellation
		if err := ctx.Err(); err != nil {
			return results, err
		}

		results = append(results, c.deleteSingle(ctx, path))
	}

	return results, nil
}

// deleteSingle deletes a single resource from the server.
func (c *Client) deleteSingle(ctx context.Context, path string) DeleteResult {
	req, err := c.newRequest(ctx, http.MethodDelete, path, false, http.NoBody)
	if err != nil {
		return DeleteResult{Path: path, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return DeleteResult{Path: path, Err: fmt.Errorf("do request: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	// 204 No Content is success
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK {
		return DeleteResult{Path: path, Deleted: true}
	}

	return DeleteResult{Path: path, Err: readServerError(resp)}
}

// HasDeleteErrors returns true if any delete operation failed.
func HasDeleteErrors(results []DeleteResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// Mkdir creates one collection per path with MKCOL. Parents must exist.
// Continues on error, collecting results for all paths.
func (c *Client) Mkdir(ctx context.Context, paths []string) ([]MkdirResult, error) {
	if len(paths) == 0 {
		return nil, ErrNoPaths
	}

	results := make([]MkdirResult, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		req, err := c.newRequest(ctx, "MKCOL", path, false, http.NoBody)
		if err != nil {
			results = append(results, MkdirResult{Path: path, Err: err})
			continue
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			results = append(results, MkdirResult{Path: path, Err: fmt.Errorf("do request: %w", err)})
			continue
		}

		if resp.StatusCode == http.StatusCreated {
			results = append(results, MkdirResult{Path: path, Created: true})
		} else {
			results = append(results, MkdirResult{Path: path, Err: readServerError(resp)})
		}
		_ = resp.Body.Close()
	}

	return results, nil
}

// List returns the immediate children of a collection using PROPFIND with
// Depth 1.
func (c *Client) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	if strings.Trim(opts.Path, "/") == "" {
		return nil, fmt.Errorf("list: %w", ErrEmptyPath)
	}

	req, err := c.newRequest(ctx, "PROPFIND", opts.Path, true, strings.NewReader(allpropBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Depth", "1")
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusMultiStatus {
		return nil, readServerError(resp)
	}

	entries, err := parseMultistatus(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	result := &ListResult{Path: strings.TrimPrefix(normalizePath(opts.Path), "/"), Items: []ObjectInfo{}}
	self, err := url.Parse(c.URL(opts.Path, true))
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	for _, e := range entries {
		// The collection itself is the entry whose href matches the request.
		if strings.TrimSuffix(e.Path, "/") == strings.TrimSuffix(self.Path, "/") {
			continue
		}
		e.Path = c.relativePath(e.Path)
		result.Items = append(result.Items, e)
	}

	return result, nil
}

// relativePath strips the endpoint's path prefix from a server href.
func (c *Client) relativePath(href string) string {
	if u, err := url.Parse(c.config.Endpoint); err == nil {
		href = strings.TrimPrefix(href, strings.TrimSuffix(u.Path, "/"))
	}
	return strings.TrimPrefix(href, "/")
}

// TotalSize calculates the total size of all items in bytes.
func (r *ListResult) TotalSize() int64 {
	var total int64
	for _, item := range r.Items {
		total += item.Size
	}
	return total
}

// Copy copies opts.Source to opts.Destination on the same server.
func (c *Client) Copy(ctx context.Context, opts TransferOptions) (*TransferResult, error) {
	return c.transfer(ctx, "COPY", opts)
}

// Move moves opts.Source to opts.Destination on the same server.
func (c *Client) Move(ctx context.Context, opts TransferOptions) (*TransferResult, error) {
	opts.Shallow = false
	return c.transfer(ctx, "MOVE", opts)
}

func (c *Client) transfer(ctx context.Context, method string, opts TransferOptions) (*TransferResult, error) {
	if opts.Source == "" || opts.Destination == "" {
		return nil, fmt.Errorf("%s: %w", strings.ToLower(method), ErrEmptyPath)
	}

	req, err := c.newRequest(ctx, method, opts.Source, false, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Destination", c.URL(opts.Destination, false))
	if opts.Overwrite {
		req.Header.Set("Overwrite", "T")
	} else {
		req.Header.Set("Overwrite", "F")
	}
	if opts.Shallow {
		req.Header.Set("Depth", "0")
	} else {
		req.Header.Set("Depth", "infinity")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return nil, readServerError(resp)
	}

	return &TransferResult{
		Source:      strings.TrimPrefix(normalizePath(opts.Source), "/"),
		Destination: strings.TrimPrefix(normalizePath(opts.Destination), "/"),
		Moved:       method == "MOVE",
		Created:     resp.StatusCode == http.StatusCreated,
	}, nil
}

// normalizePath ensures path has leading slash and no trailing slash.
func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if path == "/" {
		return path
	}
	return strings.TrimSuffix(path, "/")
}

// NormalizeLocalToRemotePath converts a local path to a clean remote path.
// It handles:
//   - Leading "./" is stripped (./foo/bar.txt -> foo/bar.txt)
//   - Leading "/" is stripped (/abs/path/file.txt -> abs/path/file.txt)
//   - Parent traversal is resolved (../sibling/file.txt -> sibling/file.txt)
//   - Backslashes are converted to forward slashes (Windows)
func NormalizeLocalToRemotePath(localPath string) string {
	// Convert to forward slashes (Windows compatibility)
	path := filepath.ToSlash(localPath)

	// Clean the path (resolves . and .. segments)
	path = filepath.ToSlash(filepath.Clean(path))

	// Strip leading "./" and "/"
	path = strings.TrimPrefix(path, "./")
	path = strings.TrimPrefix(path, "/")

	// Keep stripping leading "../" segments
	for strings.HasPrefix(path, "../") {
		path = strings.TrimPrefix(path, "../")
	}

	if path == ".." || path == "." {
		return ""
	}

	return path
}

// detectContentType returns the MIME type for path from its extension,
// falling back to sniffing the file content.
func detectContentType(path string) string {
	if ext := filepath.Ext(path); ext != "" {
		if mimeType := mime.TypeByExtension(ext); mimeType != "" {
			return mimeType
		}
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}
	return mt.String()
}

// readServerError builds an APIError from a non-success response.
func readServerError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return apiErr
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Body       string
	// RetryAfter is set when the server reports a ban.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	msg := "server error: " + strconv.Itoa(e.StatusCode)
	if e.Body != "" {
		msg += " - " + e.Body
	}
	if e.RetryAfter > 0 {
		msg += " (retry after " + e.RetryAfter.String() + ")"
	}
	return msg
}

// Is reports whether target matches this error.
// It matches if target is an *APIError with the same StatusCode.
func (e *APIError) Is(target error) bool {
	var t *APIError
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// IsNotFound returns true if the error is a 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Sentinel errors for common API error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrNotFound is returned when the requested resource does not exist (404).
	ErrNotFound = &APIError{StatusCode: http.StatusNotFound}

	// ErrUnauthorized is returned when credentials are missing or wrong (401).
	ErrUnauthorized = &APIError{StatusCode: http.StatusUnauthorized}

	// ErrForbidden is returned when the client is banned or the server has
	// no credential configured (403).
	ErrForbidden = &APIError{StatusCode: http.StatusForbidden}

	// ErrPreconditionFailed is returned when an overwrite was refused (412).
	ErrPreconditionFailed = &APIError{StatusCode: http.StatusPreconditionFailed}

	// ErrConflict is returned when a parent collection is missing (409).
	ErrConflict = &APIError{StatusCode: http.StatusConflict}
)
