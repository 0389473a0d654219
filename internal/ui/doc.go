// Package ui implements the watch-session terminal interface using bubbletea's Elm architecture.
//
// The TUI is a remote control for the player page:
//  1. [WatchView] : now playing, autonext mode, queue, event log
//  2. [SearchInputView] : search prompt
//  3. [SearchResultsView] : play or enqueue a result
//  4. [PlaylistView] : pick a local playlist as the autonext source
//
// The [Model] implements bubbletea's Init/Update/View pattern. Queue and player changes arrive through
// subscriptions that forward into a channel; the event feed is read the same way. A quota exhaustion event raises
// a banner, and an unplayable video shows a message that clears itself after a few seconds.
//
// Keyboard navigation uses vim-style bindings with contextual help displayed via charmbracelet/bubbles/help.
package ui
