package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"amuza/internal/ipc"
)

func newSampleCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Show the most recent calibrated sensor sample",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Sample()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if !resp.Available {
					fmt.Fprintln(stdout, "No sample available yet")
					return nil
				}
				if asJSON {
					encoder := json.NewEncoder(stdout)
					encoder.SetIndent("", "  ")
					return encoder.Encode(resp.Sample)
				}
				renderSample(stdout, resp.Sample)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the sample as JSON")
	return cmd
}

func renderSample(stdout io.Writer, sample ipc.Sample) {
	fmt.Fprintf(stdout, "Timestamp:    %s\n", sample.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(stdout, "Counter:      %d\n", sample.Counter)
	if sample.Well != "" {
		fmt.Fprintf(stdout, "Well:         %s\n", sample.Well)
	}
	fmt.Fprintf(stdout, "Temperature:  %.1f C\n", sample.Temperature)

	names := make([]string, 0, len(sample.Metabolites))
	for name := range sample.Metabolites {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(stdout, "%-13s %.4f\n", metaboliteDisplayName(name)+":", sample.Metabolites[name])
	}
}
