package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dubber/internal/language"
	"dubber/internal/voices"
)

func newVoicesCommand(ctx *commandContext) *cobra.Command {
	var langFilter string

	cmd := &cobra.Command{
		Use:   "voices",
		Short: "List the synthetic voice catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			catalog := voices.NewCatalog(voices.FromConfig(cfg.Voices))
			if err := catalog.Validate(); err != nil {
				return err
			}

			langs := catalog.Languages()
			if filter := strings.TrimSpace(langFilter); filter != "" {
				langs = []string{language.Normalize(filter)}
			}

			rows := make([][]string, 0, len(langs)*2)
			for _, lang := range langs {
				for _, entry := range catalog.ForLanguage(lang) {
					rows = append(rows, []string{
						lang,
						language.DisplayName(lang),
						entry.Name,
						fmt.Sprintf("%.0f Hz", entry.PitchHz),
						entry.Gender,
					})
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Code", "Language", "Voice", "Pitch", "Gender"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&langFilter, "language", "l", "", "Limit output to one language code")
	return cmd
}
