// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for browsing migration sessions:
//  1. [SessionListView] : Browse recorded migration sessions, newest first
//  2. [LedgerView] : Walk one session's progress ledger entry by entry
//  3. [SummaryView] : Display the session's counters and bookkeeping lists
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View
// pattern, receiving messages via the Msg union type. Sessions are loaded from
// a [sessions.Store] in a tea.Cmd so the UI never blocks on disk.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, tab, q) with
// contextual help displayed via charmbracelet/bubbles/help.
package ui
