// Package notifications manages the notification inbox for an authenticated session.
//
// [Manager] holds the current page of notifications and the server-authoritative unread count.
// Read actions are applied optimistically and rolled back if the backend rejects them. A burst of
// single reads triggers one debounced unread-count refresh, and while authenticated the count is
// polled on a fixed interval.
//
// [ReadOverlay] is a persisted set of notification IDs the user has read locally. Any ID in the
// overlay is shown as read even when the backend has not caught up yet. The overlay is purged on logout.
package notifications
