// Package logs reads back the JSON log file written by every scenecast
// command.
//
// Last and Since return complete lines with byte offsets so a caller can
// resume where it stopped; Follow polls for new lines until its context ends.
// Parse and Entry.Format turn JSON records into console lines for
// `scenecast logs`.
package logs
