// Package gtts wraps the gtts-cli text-to-speech tool.
package gtts
