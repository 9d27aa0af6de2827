// Package ffmpeg runs ffmpeg for audio re-timing and audio/video muxing.
//
// Runner executes one invocation per call through a process.Executor. The
// *Args helpers build the argument lists for each operation: TempoArgs for
// narration speed-up and TrimAudioArgs, SpeedVideoArgs and StreamCopyArgs for
// the three synchronization strategies.
package ffmpeg
