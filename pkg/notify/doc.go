// Package notify records and serves per-profile notifications.
//
// The Notifier interface is what the engine packages depend on; the
// Recorder implements it over the notifications table, and Noop
// discards everything for tests and tools that do not care.
//
// Notifications are recipient-only. ListForRecipient resolves through
// the visibility resolver, so an anonymous subject gets an empty list
// and nobody can read another profile's inbox. MarkRead mutates only
// the recipient's own rows; anything else reads as model.ErrNotFound.
package notify
