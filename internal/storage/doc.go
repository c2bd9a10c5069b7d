// Package storage wraps an S3-compatible bucket (Cloudflare R2 in
// production) behind the operations the pipeline needs: whole-object and
// streamed uploads, streamed reads with metadata, presigned URLs, listing and
// idempotent deletes.
//
// The gateway performs no retries of its own. Absent objects surface as
// errors marked services.ErrNotFound, except for Exists, which never fails
// and reports false instead.
package storage
