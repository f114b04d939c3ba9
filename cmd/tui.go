package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/relo/internal/shared"
	"github.com/desertthunder/relo/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for session browsing.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if r.sessionStore == nil {
		return fmt.Errorf("%w: session store not initialized", shared.ErrStoreUnavailable)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/relo-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewModel(r.sessionStore)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
