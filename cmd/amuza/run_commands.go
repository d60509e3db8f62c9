package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"amuza/internal/ipc"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start and control sampling runs",
	}

	var plateSampling int
	var plateBuffer int
	plateCmd := &cobra.Command{
		Use:   "plate <selection>",
		Short: "Sample a contiguous well range (for example A1:C1)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RunPlate(ipc.RunRequest{
					Selection:       strings.TrimSpace(args[0]),
					SamplingSeconds: plateSampling,
					BufferSeconds:   plateBuffer,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Run started: %s\n", resp.RunID)
				return nil
			})
		},
	}
	plateCmd.Flags().IntVar(&plateSampling, "sampling", 0, "Seconds to sample each well (0 uses the configured default)")
	plateCmd.Flags().IntVar(&plateBuffer, "buffer", -1, "Seconds to settle between wells (-1 uses the configured default)")

	var moveSampling int
	var moveBuffer int
	moveCmd := &cobra.Command{
		Use:   "move <wells>",
		Short: "Sample wells in an explicit order, repeats allowed (for example C5,A1,C5)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Move(ipc.RunRequest{
					Selection:       strings.TrimSpace(args[0]),
					SamplingSeconds: moveSampling,
					BufferSeconds:   moveBuffer,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Run started: %s\n", resp.RunID)
				return nil
			})
		},
	}
	moveCmd.Flags().IntVar(&moveSampling, "sampling", 0, "Seconds to sample each well (0 uses the configured default)")
	moveCmd.Flags().IntVar(&moveBuffer, "buffer", -1, "Seconds to settle between wells (-1 uses the configured default)")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the active run after the current well",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.StopRun(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Stop requested")
				return nil
			})
		},
	}

	runCmd.AddCommand(plateCmd)
	runCmd.AddCommand(moveCmd)
	runCmd.AddCommand(stopCmd)
	return runCmd
}
