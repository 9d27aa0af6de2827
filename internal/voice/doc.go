// Package voice turns narration into the tempo-adjusted voice track and
// reconciles the estimated timeline total against the measured audio length.
//
// The adapter owns two intermediate files in the run directory:
// voiceover_normal.mp3 (deleted once the tempo pass succeeds) and
// voiceover.mp3, the track handed to synchronization.
package voice
