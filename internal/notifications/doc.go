// Package notifications delivers run outcomes to ntfy.
//
// NewService returns an ntfy-backed Service when notifications.ntfy_topic is
// configured and a no-op otherwise, so the pipeline can notify unconditionally.
// Delivery failures are returned to the caller, which logs and ignores them.
package notifications
