// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI has two tabs:
//  1. [InboxTab] : Notifications with an unread badge. enter marks the selection read, a marks everything read.
//  2. [SongsTab] : The catalog as an infinite-scroll list. Paging to the last row loads the next page.
//
// State lives outside the model in a [notifications.Manager] and a [paging.Loader]. Their OnChange callbacks push
// snapshots into the program as messages, so background polling updates the badge without user input.
//
// Keyboard navigation uses vim-style bindings (j/k, tab, enter, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
