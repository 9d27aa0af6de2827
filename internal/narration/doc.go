// Package narration produces the voiceover text for a scene timeline and
// strips its timing annotations before synthesis.
package narration
