// Package http serves WebDAV over one or more davgate buckets.
//
// # Request Flow
//
// Every request passes through the same chain:
//
//  1. Method filter: OPTIONS is answered with Allow and DAV: 1, unknown verbs
//     with an empty 405. Neither requires credentials.
//  2. Optional per-identity rate limit (go-chi/httprate).
//  3. AuthMiddleware: Basic auth through the Authenticator, normally a
//     *davgate.Guard backed by the attempt ledger.
//  4. ResolveMiddleware: the first path segment below the base path picks the
//     bucket, the remainder is the key. Unknown buckets are 404.
//  5. The verb handler.
//
// Auth runs before resolution, so a wrong password against an unknown bucket
// still counts as a failed attempt and bucket names are not disclosed to
// unauthenticated clients.
//
// # Verbs
//
//   - GET, HEAD: object content via http.ServeContent (ranges, conditional
//     requests); collections render a small HTML index
//   - PUT: 201 on create, 204 on overwrite; honors If-Match and If-None-Match: *
//   - DELETE: recursive and idempotent, always 204
//   - MKCOL: 201; 409 when the parent is missing; 405 when the target exists
//   - COPY, MOVE: Destination, Overwrite and Depth headers; buckets may differ
//   - PROPFIND: 207 multistatus for Depth 0 or 1 (infinity is served as 1)
//   - POST: multipart/form-data upload of "file" parts into a collection
//
// # Usage
//
//	resolver, err := http.NewResolver("/webdav", buckets)
//	handler, err := http.NewHandler(&http.HandlerConfig{
//	    Identity: davgate.IdentityPolicy{TrustedHeader: "X-Forwarded-For"},
//	}, guard, resolver)
//	srv := &nethttp.Server{Addr: ":5708", Handler: handler.Router()}
//
// # Errors
//
// HandleError maps davgate sentinel errors to status codes and writes a
// short JSON body. Store errors are logged and surface as 503.
package http
