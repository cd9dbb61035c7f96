package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"dubber/internal/logging"
	"dubber/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var background string
	var sourceLang string
	var targetLangs []string
	var outputDir string

	cmd := &cobra.Command{
		Use:   "run <voice-file>",
		Short: "Dub a recording into one or more target languages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(targetLangs) == 0 {
				return fmt.Errorf("at least one --to language is required")
			}

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			pipe, err := pipeline.Compose(cfg, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			dest := strings.TrimSpace(outputDir)
			if dest == "" {
				dest = cfg.Paths.OutputDir
			}

			results, runErr := pipe.Run(cmd.Context(), pipeline.Request{
				VoicePath:       args[0],
				BackgroundPath:  strings.TrimSpace(background),
				SourceLanguage:  sourceLang,
				TargetLanguages: targetLangs,
				OutputDir:       dest,
				Progress: func(update pipeline.Progress) {
					label := update.Stage
					if update.Language != "" {
						label = fmt.Sprintf("%s [%s]", update.Stage, update.Language)
					}
					if update.Message != "" {
						fmt.Fprintf(out, "%3d%% %-24s %s\n", update.Percent, label, update.Message)
						return
					}
					fmt.Fprintf(out, "%3d%% %s\n", update.Percent, label)
				},
			})

			if len(results) > 0 {
				langs := make([]string, 0, len(results))
				for lang := range results {
					langs = append(langs, lang)
				}
				sort.Strings(langs)

				rows := make([][]string, 0, len(langs))
				for _, lang := range langs {
					res := results[lang]
					rows = append(rows, []string{
						lang,
						res.FinalAudioPath,
						res.CaptionsPath,
						fmt.Sprintf("%.1fs", res.DurationSeconds),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Language", "Output", "Captions", "Duration"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				))
			}

			if runErr != nil {
				return fmt.Errorf("dubbing finished with errors: %w", runErr)
			}
			fmt.Fprintf(out, "Dubbed %s into %d language(s)\n", args[0], len(results))
			return nil
		},
	}

	cmd.Flags().StringVarP(&background, "background", "b", "", "Background audio file mixed under the dubbed voice")
	cmd.Flags().StringVar(&sourceLang, "from", "en", "Source language code")
	cmd.Flags().StringSliceVar(&targetLangs, "to", nil, "Target language code (repeatable)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (defaults to configured output_dir)")
	return cmd
}
