package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/relo/internal/models"
)

var (
	_ list.Item = sessionItem{}
	_ list.Item = entryItem{}
)

// sessionItem wraps [models.Session] to implement [list.Item].
type sessionItem struct {
	session *models.Session
}

func (i sessionItem) FilterValue() string { return i.session.Name() }
func (i sessionItem) Title() string {
	return fmt.Sprintf("%s (%s)", i.session.Name(), i.session.Status())
}
func (i sessionItem) Description() string {
	desc := fmt.Sprintf("%d ops, %d failed", i.session.TotalOps(), i.session.FailedOps())
	if i.session.Target() != "" {
		desc = fmt.Sprintf("%s • → %s", desc, i.session.Target())
	}
	return fmt.Sprintf("%s • %s", desc, i.session.UpdatedAt().Format("2006-01-02 15:04"))
}

// entryItem wraps [models.ProgressEntry] to implement [list.Item].
type entryItem struct {
	entry models.ProgressEntry
}

func (i entryItem) FilterValue() string { return i.entry.Operation }
func (i entryItem) Title() string {
	return fmt.Sprintf("%s [%s]", i.entry.Operation, i.entry.Status)
}
func (i entryItem) Description() string {
	desc := i.entry.Timestamp.Format("15:04:05")
	if i.entry.Detail != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.entry.Detail)
	}
	return desc
}
