package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"amuza/internal/ipc"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded sampling runs",
	}

	var listLimit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RunsList(listLimit)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Runs) == 0 {
					fmt.Fprintln(stdout, "No recorded runs")
					return nil
				}
				rows := make([][]string, 0, len(resp.Runs))
				for _, run := range resp.Runs {
					rows = append(rows, []string{
						run.ID,
						run.Kind,
						run.Wells,
						run.Status,
						formatRunTime(run.CreatedAt),
						formatRunDuration(run.StartedAt, run.FinishedAt),
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"ID", "Kind", "Wells", "Status", "Created", "Duration"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of runs to show (0 for all)")

	describeCmd := &cobra.Command{
		Use:   "describe <run-id>",
		Short: "Show the full record for one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RunDescribe(strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				run := resp.Run
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "ID:        %s\n", run.ID)
				fmt.Fprintf(stdout, "Kind:      %s\n", run.Kind)
				fmt.Fprintf(stdout, "Wells:     %s\n", run.Wells)
				fmt.Fprintf(stdout, "Status:    %s\n", run.Status)
				fmt.Fprintf(stdout, "Sampling:  %ds per well\n", run.SamplingSeconds)
				fmt.Fprintf(stdout, "Buffer:    %ds between wells\n", run.BufferSeconds)
				fmt.Fprintf(stdout, "Created:   %s\n", formatRunTime(run.CreatedAt))
				if !run.StartedAt.IsZero() {
					fmt.Fprintf(stdout, "Started:   %s\n", formatRunTime(run.StartedAt))
				}
				if !run.FinishedAt.IsZero() {
					fmt.Fprintf(stdout, "Finished:  %s\n", formatRunTime(run.FinishedAt))
				}
				if run.ErrorMessage != "" {
					fmt.Fprintf(stdout, "Error:     %s\n", run.ErrorMessage)
				}
				return nil
			})
		},
	}

	runsCmd.AddCommand(listCmd)
	runsCmd.AddCommand(describeCmd)
	return runsCmd
}

func formatRunTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatRunDuration(started, finished time.Time) string {
	if started.IsZero() || finished.IsZero() {
		return "-"
	}
	seconds := int(finished.Sub(started).Round(time.Second).Seconds())
	if seconds < 0 {
		return "-"
	}
	minutes := seconds / 60
	if minutes == 0 {
		return strconv.Itoa(seconds) + "s"
	}
	return fmt.Sprintf("%dm%02ds", minutes, seconds%60)
}
