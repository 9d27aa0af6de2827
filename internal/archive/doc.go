// Package archive uploads published artifacts to S3-compatible object
// storage (AWS S3, MinIO, Cloudflare R2). Objects are keyed
// <prefix>/<run-id>/<file name>. Archiving is optional and its failures never
// fail a run.
package archive
