// Package notifications delivers sync run outcomes via ntfy.
//
// NewService returns a no-op when no topic is configured, so callers never
// branch on whether notifications are enabled. Each event kind can be turned
// off independently in the [notifications] config section.
package notifications
