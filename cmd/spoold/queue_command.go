package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"spool/internal/config"
	"spool/internal/job"
	"spool/internal/logging"
	"spool/internal/store"
)

func newQueueCommand(configFlag *string) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the job queue",
	}
	queueCmd.AddCommand(newQueueListCommand(configFlag))
	return queueCmd
}

func newQueueListCommand(configFlag *string) *cobra.Command {
	var showDone bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued, pending, and finished jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(*configFlag)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if _, err := os.Stat(cfg.StateDBPath()); err != nil {
				if os.IsNotExist(err) {
					fmt.Fprintln(cmd.OutOrStdout(), "No state database yet; nothing queued.")
					return nil
				}
				return err
			}

			db, err := store.OpenReadOnly(cfg.StateDBPath(), logging.NewNop())
			if err != nil {
				return fmt.Errorf("open state database: %w", err)
			}
			defer db.Close()

			ctx := context.Background()
			buckets := []string{store.BucketQueue, store.BucketPending}
			if showDone {
				buckets = append(buckets, store.BucketDone)
			}

			rows := make([][]string, 0, 16)
			for _, name := range buckets {
				bucket, err := db.Bucket(ctx, name)
				if err != nil {
					return fmt.Errorf("open bucket %q: %w", name, err)
				}
				for _, pair := range bucket.Items() {
					rows = append(rows, jobRow(name, pair.Job))
				}
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs.")
				return nil
			}

			out := renderTable(
				[]string{"STORE", "ID", "TITLE", "STATUS", "PROGRESS", "SIZE", "DETAIL"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showDone, "done", false, "Include finished and failed jobs")
	return cmd
}

func jobRow(bucket string, j *job.Job) []string {
	progress := ""
	if j.Status.IsActive() && j.Percent > 0 {
		progress = fmt.Sprintf("%.1f%%", j.Percent)
	}
	size := ""
	if j.Size > 0 {
		size = humanize.Bytes(uint64(j.Size))
	}
	detail := j.Msg
	if j.Status == job.StatusError && j.Error != "" {
		detail = j.Error
	}
	return []string{bucket, j.ID, j.Title, string(j.Status), progress, size, detail}
}
