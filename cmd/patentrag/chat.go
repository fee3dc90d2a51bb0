package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"patentrag/internal/app"
	"patentrag/internal/logging"
	"patentrag/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat that keeps the conversation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Turn logs would draw over the full-screen UI.
		rt, err := app.NewRuntime(cmd.Context(), currentConfig, logger, app.RuntimeOptions{AgentLogger: logging.Discard()})
		if err != nil {
			return err
		}
		defer rt.Close()

		summary := fmt.Sprintf("%d chunks indexed from %s", rt.Store.Len(), currentConfig.Index.CorpusDir)
		m := tui.New(cmd.Context(), rt.Agent, summary)
		_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	},
}
