// Package avsync muxes the rendered animation with the voice track so both
// end together.
//
// Durations are always re-measured; upstream estimates are ignored. Exactly
// one of three strategies runs:
//
//	trim_audio   audio > video: cut audio to the video length
//	speed_video  audio < video: re-time video by audio/video
//	stream_copy  equal: copy video, encode audio
package avsync
