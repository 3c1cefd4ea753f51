// Package notifications delivers mint workflow events to ntfy.
//
// The ntfy implementation posts to the topic URL configured in config.toml and
// degrades to a no-op when no topic is set. Each event type can be switched off
// individually. Delivery is fire-and-forget from the workflow's point of view:
// failures are logged by the caller and never change workflow state.
package notifications
