// Package process runs the external tools (manim, gtts-cli, ffmpeg, ffprobe)
// behind a small Executor interface so stage code can be tested with stubs.
package process
