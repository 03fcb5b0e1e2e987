package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/notifications"
	"github.com/desertthunder/cadence/internal/paging"
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
	MsgInboxChanged MsgKind = iota
	MsgSongsChanged
	MsgActionDone
)

type actionResult struct {
	status string
	err    error
}

// inboxChangedMsg is the constructor for [MsgInboxChanged]
func inboxChangedMsg(s notifications.Snapshot) Msg {
	return Msg{kind: MsgInboxChanged, data: s}
}

// songsChangedMsg is the constructor for [MsgSongsChanged]
func songsChangedMsg(s paging.Snapshot[models.Song]) Msg {
	return Msg{kind: MsgSongsChanged, data: s}
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(status string, err error) Msg {
	return Msg{kind: MsgActionDone, data: actionResult{status: status, err: err}}
}
