// Package bootstrap turns a loaded configuration into a ready pipeline. It
// picks the model backend for the configured provider and builds the
// external tool clients that the CLI and HTTP server share.
package bootstrap
