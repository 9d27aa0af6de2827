// Package runstore records pipeline run history in SQLite.
//
// Each run row tracks the prompt, lifecycle status, the stage it is in (or
// failed in), the classified failure, render attempts, the sync strategy and
// where the artifact was published. The CLI `runs` command and the HTTP
// `/api/runs` endpoint read from here.
//
// The database lives at paths.state_dir/runs.db, uses WAL mode and retries
// SQLITE_BUSY writes with exponential backoff.
package runstore
