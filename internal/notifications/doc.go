// Package notifications delivers release events to ntfy.
//
// The service posts to the topic configured under [notifications] and
// degrades to a no-op when no topic is set, so callers never need to check
// whether notifications are enabled before publishing.
package notifications
