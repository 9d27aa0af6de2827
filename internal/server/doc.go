// Package server exposes the pipeline over HTTP with fiber.
//
// Routes:
//
//	GET  /health        liveness, always {"status":"healthy"}
//	POST /api/generate  {"prompt": "..."} -> video/mp4 attachment
//	GET  /api/runs      recent run history from the run store
//
// A missing or blank prompt answers 400; any pipeline failure answers 500
// with a generic message while the classified error is logged. Body size is
// capped by server.max_body_bytes.
package server
