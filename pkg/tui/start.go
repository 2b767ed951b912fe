package tui

import (
	"context"
	"fmt"

	"dndstake/pkg/config"
	"dndstake/pkg/home"
	"dndstake/pkg/store"

	tea "github.com/charmbracelet/bubbletea"
)

// Start runs the dashboard until the user quits or ctx is done.
func Start(ctx context.Context, ctrl *home.Controller, st *store.Store, cfg config.Config, configPath string, readOnly bool, version string) error {
	Version = version
	m := initialModel(ctx, ctrl, st, cfg, configPath, readOnly)
	defer st.Unsubscribe(m.sub)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("alas, there's been an error: %w", err)
	}
	return nil
}
