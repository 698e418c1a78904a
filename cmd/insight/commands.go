package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/insight/internal/app"
	"github.com/bobmcallan/insight/internal/common"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			common.LoadVersionFromFile()
			if jsonOutput {
				printJSON(common.GetVersionInfo())
				return
			}
			fmt.Println("insight " + common.GetFullVersion())
		},
	}
}

func companiesCmd() *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "companies",
		Short: "List the companies in the directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			companies, err := a.Directory.List(cmd.Context())
			if err != nil {
				return err
			}
			f := strings.ToLower(filter)
			out := companies[:0]
			for _, c := range companies {
				if f == "" || strings.Contains(strings.ToLower(c.Name), f) {
					out = append(out, c)
				}
			}

			if jsonOutput {
				printJSON(out)
				return nil
			}
			for _, c := range out {
				fmt.Printf("%-40s %-14s %s\n", c.Name, dash(c.ISIN), dash(c.ProviderID))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Only list names containing this text")
	return cmd
}

func acquireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "acquire <company>",
		Short: "Fetch and store a company's latest documents",
		Long:  "Fetches up to two transcripts, reports and slide decks for the company (name, ISIN or provider id) and prints the manifest.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			manifest, err := a.AcquireDocuments(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(manifest)
				return nil
			}
			fmt.Print(app.FormatManifest(manifest))
			return nil
		},
	}
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <company> <question>",
		Short: "Answer one question from a company's latest documents",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ans, err := a.AskCompany(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(ans)
				return nil
			}
			fmt.Println(ans.Text)
			return nil
		},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
