package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"amuza/internal/ipc"
)

func newTemperatureCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "temperature <celsius>",
		Short: "Set the plate temperature setpoint (0 to 99.9 C)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			celsius, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("parse temperature %q: %w", args[0], err)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Temperature(celsius); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Temperature setpoint: %.1f C\n", celsius)
				return nil
			})
		},
	}
}

func newNeedleCommand(ctx *commandContext) *cobra.Command {
	needleCmd := &cobra.Command{
		Use:   "needle",
		Short: "Raise or lower the sampling needle",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Raise the needle out of the well",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Needle(true); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Needle raised")
				return nil
			})
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Lower the needle into the current well",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Needle(false); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Needle lowered")
				return nil
			})
		},
	}

	needleCmd.AddCommand(upCmd)
	needleCmd.AddCommand(downCmd)
	return needleCmd
}
