package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/relo/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSessionsLoaded MsgKind = iota
)

// sessionsLoadedMsg is the constructor for [MsgSessionsLoaded]
func sessionsLoadedMsg(loaded []*models.Session, err error) Msg {
	return Msg{
		kind: MsgSessionsLoaded,
		data: struct {
			sessions []*models.Session
			err      error
		}{loaded, err},
	}
}
