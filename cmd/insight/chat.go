package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/bobmcallan/insight/internal/common"
	"github.com/bobmcallan/insight/internal/tui"
)

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat: pick a company, then ask questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Console logs would corrupt the full-screen UI
			a, err := loadApp(func(c *common.Config) {
				c.Logging.Outputs = []string{"file"}
			})
			if err != nil {
				return err
			}
			defer a.Close()

			names, err := a.Directory.Names(cmd.Context())
			if err != nil {
				return err
			}
			if len(names) == 0 {
				return fmt.Errorf("the company directory is empty; check universe.seed_file in the config")
			}

			p := tea.NewProgram(tui.New(a.Chat, names), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
}
