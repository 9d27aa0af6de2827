// Package ffprobe wraps ffprobe for duration measurement and stream
// inspection.
//
// Key types:
//   - Prober: runs ffprobe through a process.Executor
//   - Result: parsed JSON output containing streams and format metadata
//
// Duration is the authoritative length measurement used by narration
// reconciliation and audio/video synchronization; Inspect validates muxed
// output.
package ffprobe
