package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dubber/internal/config"
	"dubber/internal/queue"
	"dubber/internal/workflow"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the dubbing job queue",
	}

	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var background string
	var sourceLang string
	var targetLangs []string

	cmd := &cobra.Command{
		Use:   "add <voice-file>",
		Short: "Queue a recording for dubbing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(targetLangs) == 0 {
				return fmt.Errorf("at least one --to language is required")
			}
			voicePath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve voice path: %w", err)
			}
			backgroundPath := strings.TrimSpace(background)
			if backgroundPath != "" {
				if backgroundPath, err = filepath.Abs(backgroundPath); err != nil {
					return fmt.Errorf("resolve background path: %w", err)
				}
			}

			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				job, err := store.Add(cmd.Context(), voicePath, backgroundPath, sourceLang, targetLangs)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued job %d: %s -> %s\n",
					job.ID, filepath.Base(job.VoicePath), strings.Join(job.TargetLanguages, ", "))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&background, "background", "b", "", "Background audio file mixed under the dubbed voice")
	cmd.Flags().StringVar(&sourceLang, "from", "en", "Source language code")
	cmd.Flags().StringSliceVar(&targetLangs, "to", nil, "Target language code (repeatable)")
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued dubbing jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []queue.Status
			for _, raw := range listStatuses {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				jobs, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}

				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						strconv.FormatInt(job.ID, 10),
						filepath.Base(job.VoicePath),
						strings.Join(job.TargetLanguages, ","),
						string(job.Status),
						progressLabel(job),
						job.CreatedAt.Local().Format(time.RFC3339),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Source", "Languages", "Status", "Progress", "Created"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job including its per-language results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}

			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				job, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Job %d\n", job.ID)
				fmt.Fprintf(out, "  Voice:      %s\n", job.VoicePath)
				if job.BackgroundPath != "" {
					fmt.Fprintf(out, "  Background: %s\n", job.BackgroundPath)
				}
				fmt.Fprintf(out, "  Languages:  %s -> %s\n", job.SourceLanguage, strings.Join(job.TargetLanguages, ", "))
				fmt.Fprintf(out, "  Status:     %s\n", job.Status)
				if label := progressLabel(job); label != "" {
					fmt.Fprintf(out, "  Progress:   %s\n", label)
				}
				if job.ErrorMessage != "" {
					fmt.Fprintf(out, "  Error:      %s\n", job.ErrorMessage)
				}

				results, err := workflow.DecodeResults(job.ResultsJSON)
				if err != nil {
					return err
				}
				for lang, res := range results {
					fmt.Fprintf(out, "  Result [%s]: %s", lang, res.FinalAudio)
					if res.Captions != "" {
						fmt.Fprintf(out, " (captions: %s)", res.Captions)
					}
					fmt.Fprintln(out)
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				removed, err := store.Clear(cmd.Context(), all)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove every job regardless of status")
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				summary, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				if summary.Total == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows := [][]string{
					{"pending", strconv.Itoa(summary.Pending)},
					{"processing", strconv.Itoa(summary.Processing)},
					{"completed", strconv.Itoa(summary.Completed)},
					{"failed", strconv.Itoa(summary.Failed)},
					{"total", strconv.Itoa(summary.Total)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Status", "Count"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func progressLabel(job *queue.Job) string {
	if job.ProgressStage == "" {
		return ""
	}
	return fmt.Sprintf("%s %d%%", job.ProgressStage, int(job.ProgressPercent))
}
